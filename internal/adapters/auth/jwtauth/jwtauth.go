// Package jwtauth issues and verifies HS256 bearer tokens for locally
// registered accounts.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/ports/auth"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")
	ErrInvalidToken   = apperr.Unauthenticated("invalid or expired token")
)

type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Service implements both auth.TokenIssuer and auth.AuthVerifier.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	s := &Service{
		secret: cfg.Secret,
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *Service) Issue(ctx context.Context, c auth.Claims) (auth.Token, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return auth.Token{}, errors.New("jwtauth: subject required")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: c.Email,
		Role:  c.Role,
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return auth.Token{}, fmt.Errorf("jwtauth: sign: %w", err)
	}
	return auth.Token{Value: signed, ExpiresAt: exp}, nil
}

func (s *Service) Verify(ctx context.Context, token string) (auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return auth.Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(c.Subject) == "" {
		return auth.Claims{}, ErrInvalidToken
	}

	return auth.Claims{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}
