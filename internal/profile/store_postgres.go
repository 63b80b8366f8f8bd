package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each patient's profile as an encrypted blob in
// patient_profiles (see migration 002).
type PostgresStore struct {
	db    *pgxpool.Pool
	codec blobCodec
}

func NewPostgresStore(db *pgxpool.Pool, sealer Sealer) *PostgresStore {
	return &PostgresStore{db: db, codec: blobCodec{sealer: sealer}}
}

func (s *PostgresStore) Save(ctx context.Context, patientID string, p *PatientProfile) error {
	blob, err := s.codec.encode(p)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO patient_profiles (patient_id, profile_id, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (patient_id) DO UPDATE SET
			profile_id = EXCLUDED.profile_id,
			profile = EXCLUDED.profile,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, patientID, p.ID, blob, p.CreatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, patientID string) (*PatientProfile, error) {
	var blob string
	err := s.db.QueryRow(ctx, "SELECT profile FROM patient_profiles WHERE patient_id = $1", patientID).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return s.codec.decode(blob)
}

func (s *PostgresStore) Clear(ctx context.Context, patientID string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM patient_profiles WHERE patient_id = $1", patientID); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	return nil
}
