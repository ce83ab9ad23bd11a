package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-record-portal/internal/domain/accessgrants"
	"health-record-portal/internal/domain/users"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "assignments_pair_key"})

	assert.True(t, isUniqueViolation(err, ""))
	assert.True(t, isUniqueViolation(err, "assignments_pair_key"))
	assert.False(t, isUniqueViolation(err, "users_email_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
	assert.False(t, isUniqueViolation(nil, ""))
}

func TestListColumns(t *testing.T) {
	raw, err := encodeList(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	out, err := decodeList([]byte(`["fever","cough"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"fever", "cough"}, out)

	out, err = decodeList([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = decodeList([]byte(`{`))
	require.Error(t, err)
}

// openTestDB runs against TEST_DATABASE_URL and skips when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, MigrateUp(url))

	db, err := Open(url, 4)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE users CASCADE`)
		_ = db.Close()
	})
	_, err = db.Exec(`TRUNCATE users CASCADE`)
	require.NoError(t, err)
	return db
}

func TestAccessGrantsUpsertAgainstPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	usersRepo := NewUsersRepo(db)
	for _, u := range []users.User{
		{ID: "p1", Email: "p1@example.com", Role: users.RolePatient, CreatedAt: now, UpdatedAt: now},
		{ID: "d1", Email: "d1@example.com", Role: users.RoleDoctor, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, usersRepo.Create(ctx, u))
	}
	require.ErrorIs(t, usersRepo.Create(ctx, users.User{ID: "x", Email: "P1@example.com", Role: users.RolePatient, CreatedAt: now, UpdatedAt: now}), users.ErrEmailTaken)

	repo := NewAccessGrantsRepo(db)
	pending := accessgrants.Grant{ID: "g1", PatientID: "p1", DoctorID: "d1", Status: accessgrants.StatusPending, RequestedAt: now, UpdatedAt: now}

	g, err := repo.UpsertPending(ctx, pending, now)
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)

	pending.ID = "g2"
	_, err = repo.UpsertPending(ctx, pending, now)
	require.ErrorIs(t, err, accessgrants.ErrAlreadyPending)

	g.Status = accessgrants.StatusDenied
	require.NoError(t, repo.Update(ctx, g))

	later := now.Add(time.Minute)
	pending.RequestedAt, pending.UpdatedAt = later, later
	g, err = repo.UpsertPending(ctx, pending, later)
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID, "reset keeps the row")
	assert.True(t, g.RequestedAt.Equal(later))

	exp := later.Add(time.Hour)
	approved := accessgrants.Grant{ID: "g3", PatientID: "p1", DoctorID: "d1", Status: accessgrants.StatusApproved, RequestedAt: later, GrantedAt: &later, ExpiresAt: &exp, UpdatedAt: later}
	g, err = repo.UpsertApproved(ctx, approved, later)
	require.NoError(t, err)
	assert.Equal(t, accessgrants.StatusApproved, g.Status)

	_, err = repo.UpsertPending(ctx, pending, later)
	require.ErrorIs(t, err, accessgrants.ErrAlreadyApproved)

	// Past expiry the row may be re-requested without any sweep.
	_, err = repo.UpsertPending(ctx, pending, exp.Add(time.Second))
	require.NoError(t, err)
}
