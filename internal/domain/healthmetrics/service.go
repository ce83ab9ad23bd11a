package healthmetrics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"health-record-portal/internal/domain/vitals"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500

	// Clock skew tolerated on client supplied timestamps.
	futureSkew = 5 * time.Minute
)

var (
	ErrEmptyReading = apperr.Validation("at least one reading is required")
	ErrFutureTime   = apperr.Validation("recordedAt cannot be in the future")
)

// AccessChecker guards doctor reads.
type AccessChecker interface {
	RequireActive(ctx context.Context, doctorID, patientID string) error
}

type Service struct {
	repo   Repository
	access AccessChecker
	now    func() time.Time
	log    logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, access AccessChecker, opts ...Option) *Service {
	s := &Service{repo: repo, access: access, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RecordInput struct {
	Reading    vitals.Reading
	RecordedAt *time.Time
}

func (s *Service) Record(ctx context.Context, patientID string, in RecordInput) (Metric, error) {
	if in.Reading.Empty() {
		return Metric{}, ErrEmptyReading
	}
	if err := vitals.Validate(in.Reading); err != nil {
		return Metric{}, err
	}

	now := s.now()
	recordedAt := now
	if in.RecordedAt != nil {
		if in.RecordedAt.After(now.Add(futureSkew)) {
			return Metric{}, ErrFutureTime
		}
		recordedAt = in.RecordedAt.UTC()
	}

	m := Metric{
		ID:               uuid.NewString(),
		PatientID:        patientID,
		Systolic:         in.Reading.Systolic,
		Diastolic:        in.Reading.Diastolic,
		BloodSugar:       in.Reading.BloodSugar,
		HeartRate:        in.Reading.HeartRate,
		OxygenSaturation: in.Reading.OxygenSaturation,
		WeightKg:         in.Reading.WeightKg,
		RecordedAt:       recordedAt,
		CreatedAt:        now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return Metric{}, err
	}
	return m, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string, limit int) ([]Metric, error) {
	return s.repo.ListByPatient(ctx, patientID, clampLimit(limit))
}

// ListForDoctor requires an active grant from the patient.
func (s *Service) ListForDoctor(ctx context.Context, doctorID, patientID string, limit int) ([]Metric, error) {
	if err := s.access.RequireActive(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	s.log.Debug("doctor read health metrics", map[string]any{"doctor_id": doctorID, "patient_id": patientID})
	return s.repo.ListByPatient(ctx, patientID, clampLimit(limit))
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}
