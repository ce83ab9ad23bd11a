package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/metrics"
	"health-record-portal/internal/ports/auth"
)

const (
	minPasswordLen = 8
	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordLen = 72
)

var (
	ErrNotFound           = apperr.NotFound("user not found")
	ErrEmailTaken         = apperr.Conflict("email already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("invalid email or password")
	ErrInvalidRole        = apperr.Validation("role must be PATIENT or DOCTOR")
	ErrInvalidEmail       = apperr.Validation("a valid email is required")
	ErrWeakPassword       = apperr.Validation("password must be at least 8 characters")
	ErrPasswordTooLong    = apperr.Validation("password must be at most 72 bytes")
	ErrNameRequired       = apperr.Validation("name is required")
	ErrIssuerMissing      = apperr.New(apperr.KindInternal, "token issuer not configured")
)

type Service struct {
	repo    Repository
	issuer  auth.TokenIssuer
	now     func() time.Time
	cost    int
	log     logger.Logger
	metrics metrics.Recorder
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBcryptCost lowers hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService builds the account service. issuer may be nil when tokens come
// from an external identity provider; Register and Login then fail.
func NewService(repo Repository, issuer auth.TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		issuer:  issuer,
		now:     time.Now,
		cost:    bcrypt.DefaultCost,
		log:     logger.Nop(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Session is what register and login hand back to the client.
type Session struct {
	Token auth.Token
	User  User
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, ErrNameRequired
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, ErrWeakPassword
	}
	if len(in.Password) > maxPasswordLen {
		return Session{}, ErrPasswordTooLong
	}
	role, ok := ParseRole(in.Role)
	if !ok {
		return Session{}, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	now := s.now()
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		ProfileLevel: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return Session{}, err
	}

	s.log.Info("user registered", map[string]any{"user_id": u.ID, "role": string(u.Role)})
	return s.session(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if u.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.session(ctx, u)
}

func (s *Service) session(ctx context.Context, u User) (Session, error) {
	if s.issuer == nil {
		return Session{}, ErrIssuerMissing
	}
	tok, err := s.issuer.Issue(ctx, auth.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	})
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "issue token", err)
	}
	return Session{Token: tok, User: u}, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, ErrNotFound
	}
	return s.repo.GetByEmail(ctx, email)
}

// GetMany returns the known users among ids, keyed by id.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]User, error) {
	out := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range items {
		out[u.ID] = u
	}
	return out, nil
}

// RaiseLevel ratchets the stored profile level up to level. A lower or equal
// level leaves the user untouched.
func (s *Service) RaiseLevel(ctx context.Context, id string, level int) (User, error) {
	if level > MaxLevel {
		level = MaxLevel
	}

	cur, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if level <= cur.ProfileLevel {
		return cur, nil
	}

	u, err := s.repo.RaiseLevel(ctx, id, level, s.now())
	if err != nil {
		return User{}, err
	}
	if u.ProfileLevel > cur.ProfileLevel {
		s.metrics.RecordLevelUp(string(u.Role), u.ProfileLevel)
		s.log.Info("profile level raised", map[string]any{
			"user_id": u.ID,
			"from":    cur.ProfileLevel,
			"to":      u.ProfileLevel,
		})
	}
	return u, nil
}

// Provision returns the local account for externally verified claims,
// creating it on first sight.
func (s *Service) Provision(ctx context.Context, claims auth.Claims) (User, error) {
	u, err := s.Get(ctx, claims.UserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return User{}, ErrInvalidRole
	}
	email, err := normalizeEmail(claims.Email)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	u = User{
		ID:        strings.TrimSpace(claims.UserID),
		Email:     email,
		Name:      strings.SplitN(email, "@", 2)[0],
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	s.log.Info("user provisioned", map[string]any{"user_id": u.ID, "role": string(u.Role)})
	return u, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
