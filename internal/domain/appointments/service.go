package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"health-record-portal/internal/domain/profiles"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/sanitize"
)

const (
	DefaultDuration = 30
	MinDuration     = 15
	MaxDuration     = 240
	MaxReasonLen    = 500
)

var (
	ErrNotFound          = apperr.NotFound("appointment not found")
	ErrDoctorRequired    = apperr.Validation("doctorId required")
	ErrScheduleRequired  = apperr.Validation("scheduledAt required")
	ErrPastSchedule      = apperr.Validation("scheduledAt must be in the future")
	ErrInvalidDuration   = apperr.Validation("durationMinutes must be between 15 and 240")
	ErrInvalidMode       = apperr.Validation("mode must be IN_PERSON or ONLINE")
	ErrReasonTooLong     = apperr.Validation("reason must be at most 500 characters")
	ErrInvalidStatus     = apperr.Validation("status must be CONFIRMED, DECLINED, CANCELLED or COMPLETED")
	ErrNotAssigned       = apperr.Forbidden("appointments limited to assigned doctors")
	ErrModeNotOffered    = apperr.Validation("doctor does not offer this consultation mode")
	ErrSlotTaken         = apperr.Conflict("doctor already has an appointment at this time")
	ErrStaleStatus       = apperr.Conflict("appointment status changed, reload and retry")
	ErrInvalidTransition = apperr.Conflict("appointment cannot move to this status")
)

type AssignmentChecker interface {
	Exists(ctx context.Context, patientID, doctorID string) (bool, error)
}

// DoctorModes is satisfied by the profiles service.
type DoctorModes interface {
	DoctorMode(ctx context.Context, doctorID string) (profiles.ConsultationMode, error)
}

type Service struct {
	repo        Repository
	assignments AssignmentChecker
	doctors     DoctorModes
	text        *sanitize.Text
	now         func() time.Time
	log         logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, assignments AssignmentChecker, doctors DoctorModes, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		assignments: assignments,
		doctors:     doctors,
		text:        sanitize.NewText(),
		now:         time.Now,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type BookInput struct {
	DoctorID        string
	ScheduledAt     *time.Time
	DurationMinutes *int
	Mode            string
	Reason          string
}

func (s *Service) Book(ctx context.Context, patientID string, in BookInput) (Appointment, error) {
	now := s.now()

	doctorID := strings.TrimSpace(in.DoctorID)
	if doctorID == "" {
		return Appointment{}, ErrDoctorRequired
	}
	if in.ScheduledAt == nil || in.ScheduledAt.IsZero() {
		return Appointment{}, ErrScheduleRequired
	}
	if !in.ScheduledAt.After(now) {
		return Appointment{}, ErrPastSchedule
	}
	duration := DefaultDuration
	if in.DurationMinutes != nil {
		duration = *in.DurationMinutes
	}
	if duration < MinDuration || duration > MaxDuration {
		return Appointment{}, ErrInvalidDuration
	}
	reason := s.text.Clean(in.Reason)
	if utf8.RuneCountInString(reason) > MaxReasonLen {
		return Appointment{}, ErrReasonTooLong
	}

	ok, err := s.assignments.Exists(ctx, patientID, doctorID)
	if err != nil {
		return Appointment{}, err
	}
	if !ok {
		return Appointment{}, ErrNotAssigned
	}

	offered, err := s.doctors.DoctorMode(ctx, doctorID)
	if err != nil {
		return Appointment{}, err
	}
	mode, err := pickMode(in.Mode, offered)
	if err != nil {
		return Appointment{}, err
	}

	a := Appointment{
		ID:              uuid.NewString(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: duration,
		Mode:            mode,
		Reason:          reason,
		Status:          StatusRequested,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Appointment{}, err
	}

	s.log.Info("appointment requested", map[string]any{
		"appointment_id": a.ID,
		"patient_id":     patientID,
		"doctor_id":      doctorID,
		"scheduled_at":   a.ScheduledAt.Format(time.RFC3339),
	})
	return a, nil
}

// List returns the caller's appointments; role decides which side they are on.
func (s *Service) List(ctx context.Context, userID string, role users.Role, status string) ([]Appointment, error) {
	f := Filter{}
	switch role {
	case users.RolePatient:
		f.PatientID = userID
	case users.RoleDoctor:
		f.DoctorID = userID
	default:
		return []Appointment{}, nil
	}
	if strings.TrimSpace(status) != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return nil, apperr.Validation("unknown status filter")
		}
		f.Status = st
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus applies a party's transition. Doctors confirm, decline and
// complete; patients cancel.
func (s *Service) UpdateStatus(ctx context.Context, userID string, role users.Role, id string, to Status) (Appointment, error) {
	a, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return Appointment{}, err
	}

	var allowed bool
	switch {
	case role == users.RoleDoctor && a.DoctorID == userID:
		allowed = doctorMoves[a.Status][to]
	case role == users.RolePatient && a.PatientID == userID:
		allowed = patientMoves[a.Status][to]
	default:
		return Appointment{}, ErrNotFound
	}
	if !allowed {
		return Appointment{}, ErrInvalidTransition
	}

	out, err := s.repo.Transition(ctx, a.ID, a.Status, to, s.now())
	if err != nil {
		return Appointment{}, err
	}

	s.log.Info(fmt.Sprintf("appointment %s", strings.ToLower(string(to))), map[string]any{
		"appointment_id": a.ID,
		"from":           string(a.Status),
		"by":             userID,
	})
	return out, nil
}

var doctorMoves = map[Status]map[Status]bool{
	StatusRequested: {StatusConfirmed: true, StatusDeclined: true},
	StatusConfirmed: {StatusCompleted: true},
}

var patientMoves = map[Status]map[Status]bool{
	StatusRequested: {StatusCancelled: true},
	StatusConfirmed: {StatusCancelled: true},
}

// pickMode defaults to what the doctor offers, preferring in person.
func pickMode(raw string, offered profiles.ConsultationMode) (Mode, error) {
	if strings.TrimSpace(raw) == "" {
		if offered == profiles.ModeOnlineOnly {
			return ModeOnline, nil
		}
		return ModeInPerson, nil
	}
	m, ok := ParseMode(raw)
	if !ok {
		return "", ErrInvalidMode
	}
	if (m == ModeOnline && !offered.AllowsOnline()) || (m == ModeInPerson && !offered.AllowsInPerson()) {
		return "", ErrModeNotOffered
	}
	return m, nil
}
