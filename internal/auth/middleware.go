package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const patientIDKey = "patient_id"

type Middleware struct {
	service Service
}

func NewMiddleware(service Service) *Middleware {
	return &Middleware{service: service}
}

// RequirePatient validates the bearer token and stores the patient id in the
// gin context for downstream handlers.
func (m *Middleware) RequirePatient() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := m.service.ValidateToken(c.Request.Context(), token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(patientIDKey, claims.PatientID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// PatientID returns the authenticated patient, or "" outside RequirePatient.
func PatientID(c *gin.Context) string {
	return c.GetString(patientIDKey)
}
