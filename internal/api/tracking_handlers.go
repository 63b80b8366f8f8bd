package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/checkin"
	"github.com/mykana/wellness/internal/dose"
	"github.com/mykana/wellness/internal/report"
)

// CheckInRequest leaves scores optional; missing ones take the neutral
// default.
type CheckInRequest struct {
	Pain               *int       `json:"pain"`
	Anxiety            *int       `json:"anxiety"`
	Sleep              *int       `json:"sleep"`
	Mood               *int       `json:"mood"`
	SideEffects        bool       `json:"sideEffects"`
	SideEffectsDetails string     `json:"sideEffectsDetails"`
	Observations       string     `json:"observations"`
	RecordedAt         *time.Time `json:"recordedAt"`
}

func score(v *int) int {
	if v == nil {
		return checkin.DefaultScore
	}
	return *v
}

func (r CheckInRequest) checkIn() *checkin.CheckIn {
	c := &checkin.CheckIn{
		Pain:               score(r.Pain),
		Anxiety:            score(r.Anxiety),
		Sleep:              score(r.Sleep),
		Mood:               score(r.Mood),
		SideEffects:        r.SideEffects,
		SideEffectsDetails: r.SideEffectsDetails,
		Observations:       r.Observations,
	}
	if r.RecordedAt != nil {
		c.RecordedAt = *r.RecordedAt
	}
	return c
}

func (h *Handler) RecordCheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	recorded, err := h.CheckIns.Record(c.Request.Context(), auth.PatientID(c), req.checkIn())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recorded)
}

func (h *Handler) ListCheckIns(c *gin.Context) {
	r, ok := h.periodFromQuery(c)
	if !ok {
		return
	}

	checkins, err := h.CheckIns.List(c.Request.Context(), auth.PatientID(c), r.Start, r.End)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "checkIns": checkins})
}

func (h *Handler) RecordDose(c *gin.Context) {
	var d dose.Dose
	if err := c.ShouldBindJSON(&d); err != nil {
		badRequest(c, err)
		return
	}

	recorded, err := h.Doses.Record(c.Request.Context(), auth.PatientID(c), &d)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recorded)
}

func (h *Handler) ListDoses(c *gin.Context) {
	r, ok := h.periodFromQuery(c)
	if !ok {
		return
	}

	doses, err := h.Doses.List(c.Request.Context(), auth.PatientID(c), r.Start, r.End)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r, "doses": doses})
}

// DoseProgress reports today's completion and the week streak. The daily
// target comes from ?configured=, else the patient's first medication, else
// the default.
func (h *Handler) DoseProgress(c *gin.Context) {
	ctx := c.Request.Context()
	patientID := auth.PatientID(c)

	configured := dose.DefaultDailyDoses
	if raw := c.Query("configured"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			badRequest(c, fmt.Errorf("configured must be a positive integer"))
			return
		}
		configured = n
	} else {
		meds, err := h.Medications.List(ctx, patientID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if len(meds) > 0 && meds[0].DailyFrequency > 0 {
			configured = meds[0].DailyFrequency
		}
	}

	streak, err := h.Doses.Progress(ctx, patientID, configured, h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, streak)
}

func (h *Handler) Report(c *gin.Context) {
	r, ok := h.periodFromQuery(c)
	if !ok {
		return
	}

	rep, err := h.Reports.Generate(c.Request.Context(), auth.PatientID(c), r)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) periodFromQuery(c *gin.Context) (report.Range, bool) {
	r, err := report.ParsePeriod(c.Query("period"), c.Query("start"), c.Query("end"), h.now())
	if err != nil {
		h.respondError(c, err)
		return report.Range{}, false
	}
	return r, true
}
