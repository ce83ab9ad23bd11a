package tier_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-record-portal/internal/adapters/storage/memory"
	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/middleware"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/ports/auth"
)

func seed(t *testing.T, level int, role users.Role) (*tier.Gate, string) {
	t.Helper()

	repo := memory.NewUserRepo()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(context.Background(), users.User{
		ID: "u1", Email: "u1@x.io", Name: "U1", Role: role, CreatedAt: now, UpdatedAt: now,
	}))
	if level > 0 {
		_, err := repo.RaiseLevel(context.Background(), "u1", level, now)
		require.NoError(t, err)
	}
	return tier.NewGate(users.NewService(repo, nil)), "u1"
}

func TestAuthorize(t *testing.T) {
	gate, id := seed(t, 1, users.RoleDoctor)

	cases := []struct {
		name   string
		claims *auth.Claims
		role   users.Role
		level  int
		kind   apperr.Kind
		ok     bool
	}{
		{name: "no claims", role: users.RoleDoctor, kind: apperr.KindUnauthenticated},
		{name: "unknown user", claims: &auth.Claims{UserID: "ghost"}, kind: apperr.KindUnauthenticated},
		{name: "wrong role", claims: &auth.Claims{UserID: id}, role: users.RolePatient, kind: apperr.KindForbidden},
		{name: "level too low", claims: &auth.Claims{UserID: id}, role: users.RoleDoctor, level: 2, kind: apperr.KindForbidden},
		{name: "ok", claims: &auth.Claims{UserID: id}, role: users.RoleDoctor, level: 1, ok: true},
		{name: "any role", claims: &auth.Claims{UserID: id}, level: 0, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.claims != nil {
				r = r.WithContext(middleware.WithClaims(r.Context(), *tc.claims))
			}

			ident, err := gate.Authorize(r, tc.role, tc.level)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tier.Identity{UserID: id, Role: users.RoleDoctor, Level: 1}, ident)
				assert.True(t, ident.IsDoctor())
				return
			}
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestAuthorizeUsesStoredRoleNotClaim(t *testing.T) {
	gate, id := seed(t, 1, users.RolePatient)

	r := httptest.NewRequest("GET", "/", nil)
	r = r.WithContext(middleware.WithClaims(r.Context(), auth.Claims{UserID: id, Role: "DOCTOR"}))

	_, err := gate.Authorize(r, users.RoleDoctor, 0)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestRequireLevel(t *testing.T) {
	gate, id := seed(t, 1, users.RolePatient)
	ctx := context.Background()

	ident, err := gate.RequireLevel(ctx, id, 1)
	require.NoError(t, err)
	assert.True(t, ident.IsPatient())

	ident, err = gate.RequireLevel(ctx, id, 2)
	require.Error(t, err)
	assert.Equal(t, tier.LevelMessage(2), apperr.Message(err))
	assert.Equal(t, 1, ident.Level)
}
