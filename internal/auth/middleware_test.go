package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", NewMiddleware(svc).RequirePatient(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"patient_id": PatientID(c)})
	})
	return r
}

func TestRequirePatient(t *testing.T) {
	svc, _ := newTestAuth(t)
	user, err := svc.Register(context.Background(), "Ana", "ana@example.com", "segredo1")
	require.NoError(t, err)
	token, _, err := svc.generateToken(user)
	require.NoError(t, err)

	router := newProtectedRouter(svc)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"patient_id":"`+user.ID+`"}`, w.Body.String())
			}
		})
	}
}
