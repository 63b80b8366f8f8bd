package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/profile"
)

// CompleteProfile takes the finished questionnaire as a JSON object keyed by
// field name and returns the derived profile.
func (h *Handler) CompleteProfile(c *gin.Context) {
	var answers profile.QuestionnaireAnswers
	if err := c.ShouldBindJSON(&answers); err != nil {
		badRequest(c, err)
		return
	}

	p, err := h.Profiles.Complete(c.Request.Context(), auth.PatientID(c), answers)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, ok := h.loadProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ClearProfile(c *gin.Context) {
	if err := h.Profiles.Clear(c.Request.Context(), auth.PatientID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Greeting(c *gin.Context) {
	p, ok := h.loadProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"greeting":      profile.Greeting(p),
		"languageStyle": profile.LanguageStyleHint(p),
	})
}

func (h *Handler) DashboardPriorities(c *gin.Context) {
	p, ok := h.loadProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"priorities": profile.DashboardPriorities(p)})
}

func (h *Handler) NotificationTimes(c *gin.Context) {
	p, ok := h.loadProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"times":      profile.NotificationTimes(p),
		"preference": p.Personalization.NotificationPreference,
	})
}

// QuestionnaireOptions lists the choices the questionnaire offers.
func (h *Handler) QuestionnaireOptions(c *gin.Context) {
	c.JSON(http.StatusOK, profile.QuestionnaireOptions())
}

func (h *Handler) loadProfile(c *gin.Context) (*profile.PatientProfile, bool) {
	p, err := h.Profiles.Get(c.Request.Context(), auth.PatientID(c))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return p, true
}
