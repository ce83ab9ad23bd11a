package accessgrants

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/metrics"
)

const (
	MinExpiryDays = 1
	MaxExpiryDays = 365
)

var (
	ErrNotAssigned        = apperr.Forbidden("access requests limited to assigned patients")
	ErrGrantNotAssigned   = apperr.Forbidden("access grants limited to assigned doctors")
	ErrAlreadyApproved    = apperr.Conflict("access already approved")
	ErrAlreadyPending     = apperr.Conflict("access request already pending")
	ErrNotFound           = apperr.NotFound("access grant not found")
	ErrPatientNotFound    = apperr.NotFound("patient not found")
	ErrDoctorNotFound     = apperr.NotFound("doctor not found")
	ErrNoActiveGrant      = apperr.Forbidden("no active access grant for this patient")
	ErrInvalidDecision    = apperr.Validation("status must be APPROVED, DENIED or REVOKED")
	ErrInvalidExpiry      = apperr.Validation("expiresInDays must be between 1 and 365")
	ErrExpiryNeedsApprove = apperr.Validation("expiresInDays only applies to APPROVED")
	ErrTargetRequired     = apperr.Validation("patientId or patientEmail required")
)

// AssignmentChecker is the precondition for every grant write.
type AssignmentChecker interface {
	Exists(ctx context.Context, patientID, doctorID string) (bool, error)
}

// Directory resolves grant parties.
type Directory interface {
	Get(ctx context.Context, id string) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
}

type Service struct {
	repo        Repository
	assignments AssignmentChecker
	dir         Directory
	now         func() time.Time
	log         logger.Logger
	metrics     metrics.Recorder
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }
func WithMetrics(m metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }

func NewService(repo Repository, assignments AssignmentChecker, dir Directory, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		assignments: assignments,
		dir:         dir,
		now:         time.Now,
		log:         logger.Nop(),
		metrics:     metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entry is a grant with its effective state at read time.
type Entry struct {
	Grant
	Active bool
}

// DoctorView splits a doctor's grants by status.
type DoctorView struct {
	Pending  []Entry
	Approved []Entry
}

// Target names a user by id or, failing that, by email.
type Target struct {
	ID    string
	Email string
}

// RequestAccess opens (or re-opens) a PENDING request from doctorID to patientID.
func (s *Service) RequestAccess(ctx context.Context, doctorID, patientID string) (Grant, error) {
	patient, err := s.party(ctx, Target{ID: patientID}, users.RolePatient, ErrPatientNotFound)
	if err != nil {
		return Grant{}, err
	}
	if err := s.requireAssigned(ctx, patient.ID, doctorID, ErrNotAssigned); err != nil {
		return Grant{}, err
	}

	now := s.now()
	g, err := s.repo.UpsertPending(ctx, Grant{
		ID:          uuid.NewString(),
		PatientID:   patient.ID,
		DoctorID:    doctorID,
		Status:      StatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}, now)
	if err != nil {
		return Grant{}, err
	}

	s.transitioned(g, "access requested")
	return g, nil
}

// RequestAccessTo resolves the patient by id or email first.
func (s *Service) RequestAccessTo(ctx context.Context, doctorID string, t Target) (Grant, error) {
	patient, err := s.party(ctx, t, users.RolePatient, ErrPatientNotFound)
	if err != nil {
		return Grant{}, err
	}
	return s.RequestAccess(ctx, doctorID, patient.ID)
}

// Grant lets a patient approve a doctor directly, without a prior request.
func (s *Service) Grant(ctx context.Context, patientID string, doctor Target, expiresInDays *int) (Grant, error) {
	if err := validateExpiry(expiresInDays); err != nil {
		return Grant{}, err
	}
	d, err := s.party(ctx, doctor, users.RoleDoctor, ErrDoctorNotFound)
	if err != nil {
		return Grant{}, err
	}
	if err := s.requireAssigned(ctx, patientID, d.ID, ErrGrantNotAssigned); err != nil {
		return Grant{}, err
	}

	now := s.now()
	g, err := s.repo.UpsertApproved(ctx, Grant{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		DoctorID:    d.ID,
		Status:      StatusApproved,
		RequestedAt: now,
		GrantedAt:   &now,
		ExpiresAt:   expiry(now, expiresInDays),
		UpdatedAt:   now,
	}, now)
	if err != nil {
		return Grant{}, err
	}

	s.transitioned(g, "access granted")
	return g, nil
}

// Decide applies the patient's decision on one of their grants. Any prior
// status is accepted. Approving an already active grant keeps GrantedAt.
func (s *Service) Decide(ctx context.Context, patientID, grantID string, decision Status, expiresInDays *int) (Grant, error) {
	if _, ok := ParseDecision(string(decision)); !ok {
		return Grant{}, ErrInvalidDecision
	}
	if expiresInDays != nil && decision != StatusApproved {
		return Grant{}, ErrExpiryNeedsApprove
	}
	if err := validateExpiry(expiresInDays); err != nil {
		return Grant{}, err
	}

	g, err := s.repo.GetForPatient(ctx, patientID, strings.TrimSpace(grantID))
	if err != nil {
		return Grant{}, err
	}

	now := s.now()
	if decision == StatusApproved {
		if !g.ActiveAt(now) {
			g.GrantedAt = &now
			g.ExpiresAt = nil
		}
		if expiresInDays != nil {
			g.ExpiresAt = expiry(now, expiresInDays)
		}
	}
	g.Status = decision
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	s.transitioned(g, "access decided")
	return g, nil
}

// Revoke is Decide(REVOKED) without a body. Idempotent.
func (s *Service) Revoke(ctx context.Context, patientID, grantID string) (Grant, error) {
	g, err := s.repo.GetForPatient(ctx, patientID, strings.TrimSpace(grantID))
	if err != nil {
		return Grant{}, err
	}
	if g.Status == StatusRevoked {
		return g, nil
	}

	g.Status = StatusRevoked
	g.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	s.transitioned(g, "access revoked")
	return g, nil
}

// IsActive is evaluated against the clock on every call. Expired grants are
// never rewritten; they simply stop being active.
func (s *Service) IsActive(ctx context.Context, patientID, doctorID string) (bool, error) {
	g, err := s.repo.GetByPair(ctx, patientID, doctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return g.ActiveAt(s.now()), nil
}

// RequireActive is the guard in front of every doctor read of patient data.
func (s *Service) RequireActive(ctx context.Context, doctorID, patientID string) error {
	if _, err := s.party(ctx, Target{ID: patientID}, users.RolePatient, ErrPatientNotFound); err != nil {
		return err
	}
	ok, err := s.IsActive(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoActiveGrant
	}
	return nil
}

// Describe evaluates g against the service clock.
func (s *Service) Describe(g Grant) Entry {
	return Entry{Grant: g, Active: g.ActiveAt(s.now())}
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID string) (DoctorView, error) {
	items, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return DoctorView{}, err
	}

	now := s.now()
	out := DoctorView{Pending: []Entry{}, Approved: []Entry{}}
	for _, g := range items {
		switch g.Status {
		case StatusPending:
			out.Pending = append(out.Pending, Entry{Grant: g})
		case StatusApproved:
			out.Approved = append(out.Approved, Entry{Grant: g, Active: g.ActiveAt(now)})
		}
	}
	return out, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Entry, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Entry, 0, len(items))
	for _, g := range items {
		out = append(out, Entry{Grant: g, Active: g.ActiveAt(now)})
	}
	return out, nil
}

func (s *Service) party(ctx context.Context, t Target, role users.Role, notFound error) (users.User, error) {
	var (
		u   users.User
		err error
	)
	switch {
	case strings.TrimSpace(t.ID) != "":
		u, err = s.dir.Get(ctx, strings.TrimSpace(t.ID))
	case strings.TrimSpace(t.Email) != "":
		u, err = s.dir.GetByEmail(ctx, t.Email)
	default:
		if role == users.RoleDoctor {
			return users.User{}, apperr.Validation("doctorId or doctorEmail required")
		}
		return users.User{}, ErrTargetRequired
	}
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, notFound
		}
		return users.User{}, err
	}
	if u.Role != role {
		return users.User{}, notFound
	}
	return u, nil
}

func (s *Service) requireAssigned(ctx context.Context, patientID, doctorID string, denied error) error {
	ok, err := s.assignments.Exists(ctx, patientID, doctorID)
	if err != nil {
		return err
	}
	if !ok {
		return denied
	}
	return nil
}

func (s *Service) transitioned(g Grant, msg string) {
	s.metrics.RecordGrantTransition(string(g.Status))
	fields := map[string]any{
		"grant_id":   g.ID,
		"patient_id": g.PatientID,
		"doctor_id":  g.DoctorID,
		"status":     string(g.Status),
	}
	if g.ExpiresAt != nil {
		fields["expires_at"] = g.ExpiresAt.UTC().Format(time.RFC3339)
	}
	s.log.Info(msg, fields)
}

func validateExpiry(days *int) error {
	if days == nil {
		return nil
	}
	if *days < MinExpiryDays || *days > MaxExpiryDays {
		return ErrInvalidExpiry
	}
	return nil
}

func expiry(now time.Time, days *int) *time.Time {
	if days == nil {
		return nil
	}
	t := now.AddDate(0, 0, *days)
	return &t
}
