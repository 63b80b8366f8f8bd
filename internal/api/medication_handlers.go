package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mykana/wellness/internal/auth"
	"github.com/mykana/wellness/internal/medication"
)

func inventories(meds []*medication.Medication) []medication.Inventory {
	out := make([]medication.Inventory, 0, len(meds))
	for _, m := range meds {
		out = append(out, m.Inventory())
	}
	return out
}

func (h *Handler) CreateMedication(c *gin.Context) {
	var m medication.Medication
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.Medications.Create(c.Request.Context(), auth.PatientID(c), &m)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created.Inventory())
}

func (h *Handler) ListMedications(c *gin.Context) {
	meds, err := h.Medications.List(c.Request.Context(), auth.PatientID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": inventories(meds)})
}

func (h *Handler) GetMedication(c *gin.Context) {
	m, err := h.Medications.Get(c.Request.Context(), auth.PatientID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m.Inventory())
}

func (h *Handler) UpdateMedication(c *gin.Context) {
	var m medication.Medication
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err)
		return
	}
	m.ID = c.Param("id")

	updated, err := h.Medications.Update(c.Request.Context(), auth.PatientID(c), &m)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated.Inventory())
}

func (h *Handler) DeleteMedication(c *gin.Context) {
	if err := h.Medications.Delete(c.Request.Context(), auth.PatientID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DueMedications lists medications scheduled close to the current time.
func (h *Handler) DueMedications(c *gin.Context) {
	meds, err := h.Medications.Due(c.Request.Context(), auth.PatientID(c), h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": inventories(meds)})
}
