package dose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykana/wellness/internal/audit"
)

type Service interface {
	Record(ctx context.Context, patientID string, d *Dose) (*Dose, error)
	// List returns doses taken in [from, to), oldest first.
	List(ctx context.Context, patientID string, from, to time.Time) ([]*Dose, error)
	// Progress reports today's completion and the current week streak.
	Progress(ctx context.Context, patientID string, configured int, now time.Time) (Streak, error)
}

type service struct {
	db    *pgxpool.Pool
	audit audit.Service
	now   func() time.Time
}

func NewService(db *pgxpool.Pool, audit audit.Service) Service {
	return &service{db: db, audit: audit, now: time.Now}
}

func (s *service) Record(ctx context.Context, patientID string, d *Dose) (*Dose, error) {
	d.Normalize()
	if d.Time == "" {
		d.Time = s.now().Format(clockLayout)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	d.ID = uuid.New().String()
	d.PatientID = patientID
	if d.TakenAt.IsZero() {
		d.TakenAt = s.now()
	}
	d.TakenAt = d.TakenAt.UTC()

	_, err := s.db.Exec(ctx,
		`INSERT INTO doses (id, patient_id, usage_form, custom_usage_form, quantity, frequency,
		 time_of_day, observation, taken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.PatientID, d.UsageForm, d.CustomUsageForm, d.Quantity, d.Frequency,
		d.Time, d.Observation, d.TakenAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record dose: %w", err)
	}

	if s.audit != nil {
		s.audit.LogEvent(ctx, &audit.AuditEvent{
			EventType:   audit.EventModify,
			UserID:      patientID,
			Action:      "CREATE",
			Resource:    "dose",
			ResourceID:  d.ID,
			Status:      "success",
			Sensitivity: "PHI",
		})
	}
	return d, nil
}

func (s *service) List(ctx context.Context, patientID string, from, to time.Time) ([]*Dose, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, patient_id, usage_form, custom_usage_form, quantity, frequency, time_of_day,
		 observation, taken_at
		 FROM doses
		 WHERE patient_id = $1 AND taken_at >= $2 AND taken_at < $3
		 ORDER BY taken_at`,
		patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query doses: %w", err)
	}
	defer rows.Close()

	doses := []*Dose{}
	for rows.Next() {
		var d Dose
		if err := rows.Scan(&d.ID, &d.PatientID, &d.UsageForm, &d.CustomUsageForm, &d.Quantity,
			&d.Frequency, &d.Time, &d.Observation, &d.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan dose: %w", err)
		}
		doses = append(doses, &d)
	}
	return doses, rows.Err()
}

func (s *service) Progress(ctx context.Context, patientID string, configured int, now time.Time) (Streak, error) {
	y, m, d := now.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -7)

	doses, err := s.List(ctx, patientID, start, end)
	if err != nil {
		return Streak{}, err
	}
	return WeekStreak(doses, configured, now), nil
}
