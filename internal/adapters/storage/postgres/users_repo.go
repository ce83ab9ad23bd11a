package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"health-record-portal/internal/domain/users"
)

const userColumns = `id, email, name, password_hash, role, profile_level, created_at, updated_at`

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		string(u.Role),
		u.ProfileLevel,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if isUniqueViolation(err, "users_email_key") {
		return users.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, users.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return users.User{}, users.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, email)
	return scanUser(row)
}

func (r *UsersRepo) ListByIDs(ctx context.Context, ids []string) ([]users.User, error) {
	if len(ids) == 0 {
		return []users.User{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]users.User, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RaiseLevel uses GREATEST so concurrent saves can never lower the level.
func (r *UsersRepo) RaiseLevel(ctx context.Context, id string, level int, at time.Time) (users.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET
			profile_level = GREATEST(profile_level, $2::integer),
			updated_at = CASE WHEN $2::integer > profile_level THEN $3 ELSE updated_at END
		WHERE id = $1
		RETURNING `+userColumns, id, level, at)
	return scanUser(row)
}

func scanUser(s scanner) (users.User, error) {
	var (
		u    users.User
		role string
	)
	if err := s.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&role,
		&u.ProfileLevel,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}
	u.Role = users.Role(role)
	return u, nil
}
