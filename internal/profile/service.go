package profile

import (
	"context"

	"github.com/mykana/wellness/internal/audit"
)

type Service interface {
	// Complete derives a profile from a finished questionnaire and stores it,
	// replacing any previous profile for the patient.
	Complete(ctx context.Context, patientID string, answers QuestionnaireAnswers) (*PatientProfile, error)
	Get(ctx context.Context, patientID string) (*PatientProfile, error)
	Clear(ctx context.Context, patientID string) error
}

type service struct {
	deriver *Deriver
	store   Store
	audit   audit.Service
	metrics *Metrics
}

func NewService(deriver *Deriver, store Store, audit audit.Service, metrics *Metrics) Service {
	if deriver == nil {
		deriver = NewDeriver()
	}
	return &service{
		deriver: deriver,
		store:   store,
		audit:   audit,
		metrics: metrics,
	}
}

func (s *service) Complete(ctx context.Context, patientID string, answers QuestionnaireAnswers) (*PatientProfile, error) {
	if patientID == "" {
		return nil, ErrMissingPatientID
	}

	p := s.deriver.Derive(answers)
	if err := s.store.Save(ctx, patientID, p); err != nil {
		return nil, err
	}
	s.metrics.observeDerivation(p)

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventModify,
		UserID:     patientID,
		Action:     "CREATE",
		Resource:   "patient_profile",
		ResourceID: p.ID,
		Status:     "success",
		Details: audit.Details(map[string]interface{}{
			"level":     p.ExperienceLevel.Level,
			"tolerance": p.Sensitivity.Tolerance,
		}),
	})

	return p, nil
}

func (s *service) Get(ctx context.Context, patientID string) (*PatientProfile, error) {
	if patientID == "" {
		return nil, ErrMissingPatientID
	}

	p, err := s.store.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, &audit.AuditEvent{
		EventType:  audit.EventAccess,
		UserID:     patientID,
		Action:     "READ",
		Resource:   "patient_profile",
		ResourceID: p.ID,
		Status:     "success",
	})
	return p, nil
}

func (s *service) Clear(ctx context.Context, patientID string) error {
	if patientID == "" {
		return ErrMissingPatientID
	}

	if err := s.store.Clear(ctx, patientID); err != nil {
		return err
	}
	s.metrics.observeClear()

	s.logEvent(ctx, &audit.AuditEvent{
		EventType: audit.EventDelete,
		UserID:    patientID,
		Action:    "DELETE",
		Resource:  "patient_profile",
		Status:    "success",
	})
	return nil
}

func (s *service) logEvent(ctx context.Context, event *audit.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.Sensitivity = "PHI"
	s.audit.LogEvent(ctx, event)
}
