package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mykana/wellness/internal/audit"
	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/checkin"
	"github.com/mykana/wellness/internal/dose"
	"github.com/mykana/wellness/internal/medication"
	"github.com/mykana/wellness/internal/profile"
	"github.com/mykana/wellness/internal/report"
)

// Services groups the domain services the handlers delegate to.
type Services struct {
	Auth        auth.Service
	Profiles    profile.Service
	Medications medication.Service
	CheckIns    checkin.Service
	Doses       dose.Service
	Reports     report.Service
	Audit       audit.Service
}

type Handler struct {
	Services
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(services Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Services: services,
		logger:   logger,
		now:      time.Now,
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, medication.ErrMedicationNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, medication.ErrInvalidMedication),
		errors.Is(err, checkin.ErrInvalidCheckIn),
		errors.Is(err, dose.ErrInvalidDose),
		errors.Is(err, report.ErrInvalidPeriod),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, profile.ErrMissingPatientID):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Unexpected errors are logged
// and hidden from the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
		)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
