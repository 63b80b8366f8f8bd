package medication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMalformedIDIsNotFound(t *testing.T) {
	// No database: a malformed id must be rejected before any query.
	svc := NewService(nil, nil)
	ctx := context.Background()

	for _, id := range []string{"abc", "", "123", "med-1"} {
		_, err := svc.Get(ctx, "patient-1", id)
		assert.ErrorIs(t, err, ErrMedicationNotFound, "get %q", id)

		m := validMedication()
		m.ID = id
		_, err = svc.Update(ctx, "patient-1", m)
		assert.ErrorIs(t, err, ErrMedicationNotFound, "update %q", id)

		assert.ErrorIs(t, svc.Delete(ctx, "patient-1", id), ErrMedicationNotFound, "delete %q", id)
	}
}
