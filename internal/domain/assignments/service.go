package assignments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
)

var (
	ErrAlreadyAssigned = apperr.Conflict("doctor already assigned")
	ErrDoctorNotFound  = apperr.NotFound("doctor not found")
	ErrInvalidInput    = apperr.Validation("doctorId required")
)

// Directory resolves the users on both ends of an assignment.
type Directory interface {
	Get(ctx context.Context, id string) (users.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]users.User, error)
}

type Service struct {
	repo Repository
	dir  Directory
	now  func() time.Time
	log  logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, dir Directory, opts ...Option) *Service {
	s := &Service{repo: repo, dir: dir, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assign links patientID to a discoverable doctor.
func (s *Service) Assign(ctx context.Context, patientID, doctorID string) (Assignment, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return Assignment{}, ErrInvalidInput
	}

	d, err := s.dir.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Assignment{}, ErrDoctorNotFound
		}
		return Assignment{}, err
	}
	if d.Role != users.RoleDoctor || d.ProfileLevel < 1 {
		return Assignment{}, ErrDoctorNotFound
	}

	a := Assignment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		DoctorID:  d.ID,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Assignment{}, err
	}

	s.log.Info("doctor assigned", map[string]any{"patient_id": patientID, "doctor_id": d.ID})
	return a, nil
}

// Exists reports whether the pair is assigned. Used as the precondition for
// access requests, messaging and appointments.
func (s *Service) Exists(ctx context.Context, patientID, doctorID string) (bool, error) {
	patientID = strings.TrimSpace(patientID)
	doctorID = strings.TrimSpace(doctorID)
	if patientID == "" || doctorID == "" {
		return false, nil
	}
	return s.repo.Exists(ctx, patientID, doctorID)
}

// Entry is an assignment with the counterpart's account.
type Entry struct {
	Assignment
	Counterpart users.User
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Entry, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.withCounterparts(ctx, items, func(a Assignment) string { return a.DoctorID })
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]Entry, error) {
	items, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return s.withCounterparts(ctx, items, func(a Assignment) string { return a.PatientID })
}

func (s *Service) withCounterparts(ctx context.Context, items []Assignment, other func(Assignment) string) ([]Entry, error) {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, other(a))
	}
	people, err := s.dir.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(items))
	for _, a := range items {
		out = append(out, Entry{Assignment: a, Counterpart: people[other(a)]})
	}
	return out, nil
}
