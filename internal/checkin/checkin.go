package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykana/wellness/internal/audit"
)

var ErrInvalidCheckIn = errors.New("invalid check-in")

const (
	MinScore     = 0
	MaxScore     = 10
	DefaultScore = 5
)

// CheckIn is one daily self-assessment. Scores run from 0 to 10; for pain
// and anxiety lower is better, for sleep and mood higher is better.
type CheckIn struct {
	ID                 string    `json:"id"`
	PatientID          string    `json:"-"`
	Pain               int       `json:"pain"`
	Anxiety            int       `json:"anxiety"`
	Sleep              int       `json:"sleep"`
	Mood               int       `json:"mood"`
	SideEffects        bool      `json:"sideEffects"`
	SideEffectsDetails string    `json:"sideEffectsDetails"`
	Observations       string    `json:"observations"`
	RecordedAt         time.Time `json:"recordedAt"`
}

func (c *CheckIn) Validate() error {
	scores := []struct {
		name  string
		value int
	}{
		{"pain", c.Pain},
		{"anxiety", c.Anxiety},
		{"sleep", c.Sleep},
		{"mood", c.Mood},
	}
	for _, s := range scores {
		if s.value < MinScore || s.value > MaxScore {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidCheckIn, s.name, MinScore, MaxScore)
		}
	}
	return nil
}

func (c *CheckIn) normalize() {
	c.SideEffectsDetails = strings.TrimSpace(c.SideEffectsDetails)
	c.Observations = strings.TrimSpace(c.Observations)
	if !c.SideEffects {
		c.SideEffectsDetails = ""
	}
}

type Service interface {
	Record(ctx context.Context, patientID string, c *CheckIn) (*CheckIn, error)
	// List returns check-ins recorded in [from, to), oldest first.
	List(ctx context.Context, patientID string, from, to time.Time) ([]*CheckIn, error)
}

type service struct {
	db    *pgxpool.Pool
	audit audit.Service
	now   func() time.Time
}

func NewService(db *pgxpool.Pool, audit audit.Service) Service {
	return &service{db: db, audit: audit, now: time.Now}
}

func (s *service) Record(ctx context.Context, patientID string, c *CheckIn) (*CheckIn, error) {
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	c.ID = uuid.New().String()
	c.PatientID = patientID
	if c.RecordedAt.IsZero() {
		c.RecordedAt = s.now()
	}
	c.RecordedAt = c.RecordedAt.UTC()

	_, err := s.db.Exec(ctx,
		`INSERT INTO checkins (id, patient_id, pain, anxiety, sleep, mood, side_effects,
		 side_effects_details, observations, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.PatientID, c.Pain, c.Anxiety, c.Sleep, c.Mood, c.SideEffects,
		c.SideEffectsDetails, c.Observations, c.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	if s.audit != nil {
		s.audit.LogEvent(ctx, &audit.AuditEvent{
			EventType:   audit.EventModify,
			UserID:      patientID,
			Action:      "CREATE",
			Resource:    "checkin",
			ResourceID:  c.ID,
			Status:      "success",
			Sensitivity: "PHI",
		})
	}
	return c, nil
}

func (s *service) List(ctx context.Context, patientID string, from, to time.Time) ([]*CheckIn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, patient_id, pain, anxiety, sleep, mood, side_effects, side_effects_details,
		 observations, recorded_at
		 FROM checkins
		 WHERE patient_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		 ORDER BY recorded_at`,
		patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer rows.Close()

	checkins := []*CheckIn{}
	for rows.Next() {
		var c CheckIn
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Pain, &c.Anxiety, &c.Sleep, &c.Mood,
			&c.SideEffects, &c.SideEffectsDetails, &c.Observations, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkins = append(checkins, &c)
	}
	return checkins, rows.Err()
}
