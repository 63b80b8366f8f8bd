package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykana/wellness/internal/audit"
)

type Service interface {
	Create(ctx context.Context, patientID string, m *Medication) (*Medication, error)
	Get(ctx context.Context, patientID, id string) (*Medication, error)
	List(ctx context.Context, patientID string) ([]*Medication, error)
	Update(ctx context.Context, patientID string, m *Medication) (*Medication, error)
	Delete(ctx context.Context, patientID, id string) error
	// Due lists the medications with a scheduled time within DueWindow of now.
	Due(ctx context.Context, patientID string, now time.Time) ([]*Medication, error)
}

type service struct {
	db    *pgxpool.Pool
	audit audit.Service
	now   func() time.Time
}

func NewService(db *pgxpool.Pool, audit audit.Service) Service {
	return &service{
		db:    db,
		audit: audit,
		now:   time.Now,
	}
}

const medicationColumns = `id, patient_id, name, brand, bottles, amount_per_unit, unit, expiry_date,
	daily_frequency, schedule, price_paid, dose_per_use, contact, created_at, updated_at`

func (s *service) Create(ctx context.Context, patientID string, m *Medication) (*Medication, error) {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m.ID = uuid.New().String()
	m.PatientID = patientID
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO medications (`+medicationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		m.ID, m.PatientID, m.Name, m.Brand, m.Bottles, m.AmountPerUnit, m.Unit, m.ExpiryDate,
		m.DailyFrequency, m.Schedule, m.PricePaid, m.DosePerUse, m.Contact, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     patientID,
		Action:     "CREATE",
		ResourceID: m.ID,
	})
	return m, nil
}

func (s *service) Get(ctx context.Context, patientID, id string) (*Medication, error) {
	if !validID(id) {
		return nil, ErrMedicationNotFound
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE id = $1 AND patient_id = $2`,
		id, patientID)
	m, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicationNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *service) List(ctx context.Context, patientID string) ([]*Medication, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+medicationColumns+` FROM medications WHERE patient_id = $1 ORDER BY created_at`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	meds := []*Medication{}
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType: audit.EventAccess,
		UserID:    patientID,
		Action:    "LIST",
	})
	return meds, nil
}

func (s *service) Update(ctx context.Context, patientID string, m *Medication) (*Medication, error) {
	if !validID(m.ID) {
		return nil, ErrMedicationNotFound
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	m.PatientID = patientID
	m.UpdatedAt = s.now().UTC()

	err := s.db.QueryRow(ctx,
		`UPDATE medications
		 SET name = $1, brand = $2, bottles = $3, amount_per_unit = $4, unit = $5, expiry_date = $6,
		     daily_frequency = $7, schedule = $8, price_paid = $9, dose_per_use = $10, contact = $11,
		     updated_at = $12
		 WHERE id = $13 AND patient_id = $14
		 RETURNING created_at`,
		m.Name, m.Brand, m.Bottles, m.AmountPerUnit, m.Unit, m.ExpiryDate,
		m.DailyFrequency, m.Schedule, m.PricePaid, m.DosePerUse, m.Contact,
		m.UpdatedAt, m.ID, patientID).Scan(&m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     patientID,
		Action:     "UPDATE",
		ResourceID: m.ID,
	})
	return m, nil
}

func (s *service) Delete(ctx context.Context, patientID, id string) error {
	if !validID(id) {
		return ErrMedicationNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM medications WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicationNotFound
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventDelete,
		UserID:     patientID,
		Action:     "DELETE",
		ResourceID: id,
	})
	return nil
}

func (s *service) Due(ctx context.Context, patientID string, now time.Time) ([]*Medication, error) {
	meds, err := s.List(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return FilterDue(meds, now, DueWindow), nil
}

// FilterDue keeps the medications due within window of now.
func FilterDue(meds []*Medication, now time.Time, window time.Duration) []*Medication {
	due := []*Medication{}
	for _, m := range meds {
		if m.DueSoon(now, window) {
			due = append(due, m)
		}
	}
	return due
}

// validID reports whether id can name a stored medication. Ids are UUIDs, so
// anything else cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID, &m.PatientID, &m.Name, &m.Brand, &m.Bottles, &m.AmountPerUnit, &m.Unit, &m.ExpiryDate,
		&m.DailyFrequency, &m.Schedule, &m.PricePaid, &m.DosePerUse, &m.Contact, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if m.Schedule == nil {
		m.Schedule = []string{}
	}
	return &m, nil
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Resource = "medication"
	event.Status = "success"
	event.Sensitivity = "PHI"
	s.audit.LogEvent(ctx, event)
}
