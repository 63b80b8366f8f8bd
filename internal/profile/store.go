package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound  = errors.New("patient profile not found")
	ErrMissingPatientID = errors.New("missing patient id")
)

// LocalProfileKey is the key used by single-patient local stores.
const LocalProfileKey = "patient_profile"

// Store persists one profile per patient. Save overwrites any previous profile
// wholesale; Load returns ErrProfileNotFound when nothing is stored.
type Store interface {
	Save(ctx context.Context, patientID string, profile *PatientProfile) error
	Load(ctx context.Context, patientID string) (*PatientProfile, error)
	Clear(ctx context.Context, patientID string) error
}

// Sealer encrypts profile blobs at rest.
type Sealer interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// blobCodec serializes a profile into the single opaque value stored per key.
// A nil sealer stores plain JSON.
type blobCodec struct {
	sealer Sealer
}

func (c blobCodec) encode(p *PatientProfile) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	if c.sealer == nil {
		return string(data), nil
	}
	sealed, err := c.sealer.Encrypt(data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt profile: %w", err)
	}
	return sealed, nil
}

func (c blobCodec) decode(blob string) (*PatientProfile, error) {
	data := []byte(blob)
	if c.sealer != nil {
		plain, err := c.sealer.Decrypt(blob)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt profile: %w", err)
		}
		data = plain
	}
	var p PatientProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}
