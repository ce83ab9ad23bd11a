package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"health-record-portal/internal/domain/accessgrants"
)

const grantColumns = `id, patient_id, doctor_id, status, requested_at, granted_at, expires_at, updated_at`

// activeAt mirrors Grant.ActiveAt for the stored row; param is the
// placeholder holding now.
func activeAt(param int) string {
	return fmt.Sprintf(`access_grants.status = 'APPROVED' AND (access_grants.expires_at IS NULL OR access_grants.expires_at > $%d)`, param)
}

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

// UpsertPending inserts or resets the pair row in one statement. When the
// WHERE clause of the update rejects the row nothing is returned, and the
// current row is read to report which conflict applies.
func (r *AccessGrantsRepo) UpsertPending(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,'PENDING',$4,NULL,NULL,$5)
		ON CONFLICT (patient_id, doctor_id) DO UPDATE
		SET
			status = 'PENDING',
			requested_at = EXCLUDED.requested_at,
			granted_at = NULL,
			expires_at = NULL,
			updated_at = EXCLUDED.updated_at
		WHERE access_grants.status <> 'PENDING'
		  AND NOT (`+activeAt(6)+`)
		RETURNING `+grantColumns,
		g.ID,
		g.PatientID,
		g.DoctorID,
		g.RequestedAt,
		g.UpdatedAt,
		now,
	)

	out, err := scanGrant(row)
	if !errors.Is(err, accessgrants.ErrNotFound) {
		return out, err
	}

	cur, err := r.GetByPair(ctx, g.PatientID, g.DoctorID)
	if err != nil {
		return accessgrants.Grant{}, err
	}
	if cur.Status == accessgrants.StatusPending {
		return accessgrants.Grant{}, accessgrants.ErrAlreadyPending
	}
	return accessgrants.Grant{}, accessgrants.ErrAlreadyApproved
}

func (r *AccessGrantsRepo) UpsertApproved(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,'APPROVED',$4,$5,$6,$7)
		ON CONFLICT (patient_id, doctor_id) DO UPDATE
		SET
			status = 'APPROVED',
			granted_at = EXCLUDED.granted_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		WHERE NOT (`+activeAt(8)+`)
		RETURNING `+grantColumns,
		g.ID,
		g.PatientID,
		g.DoctorID,
		g.RequestedAt,
		g.GrantedAt,
		g.ExpiresAt,
		g.UpdatedAt,
		now,
	)

	out, err := scanGrant(row)
	if errors.Is(err, accessgrants.ErrNotFound) {
		return accessgrants.Grant{}, accessgrants.ErrAlreadyApproved
	}
	return out, err
}

func (r *AccessGrantsRepo) GetForPatient(ctx context.Context, patientID, grantID string) (accessgrants.Grant, error) {
	if strings.TrimSpace(grantID) == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE id = $1 AND patient_id = $2
	`, grantID, patientID)
	return scanGrant(row)
}

func (r *AccessGrantsRepo) GetByPair(ctx context.Context, patientID, doctorID string) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE patient_id = $1 AND doctor_id = $2
	`, patientID, doctorID)
	return scanGrant(row)
}

func (r *AccessGrantsRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET
			status = $2,
			granted_at = $3,
			expires_at = $4,
			updated_at = $5
		WHERE id = $1
	`,
		g.ID,
		string(g.Status),
		g.GrantedAt,
		g.ExpiresAt,
		g.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return accessgrants.ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) ListByDoctor(ctx context.Context, doctorID string) ([]accessgrants.Grant, error) {
	return r.list(ctx, `WHERE doctor_id = $1`, doctorID)
}

func (r *AccessGrantsRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *AccessGrantsRepo) list(ctx context.Context, where, arg string) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		`+where+`
		ORDER BY updated_at DESC, id ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGrant(s scanner) (accessgrants.Grant, error) {
	var (
		g      accessgrants.Grant
		status string
	)
	if err := s.Scan(
		&g.ID,
		&g.PatientID,
		&g.DoctorID,
		&status,
		&g.RequestedAt,
		&g.GrantedAt,
		&g.ExpiresAt,
		&g.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accessgrants.Grant{}, accessgrants.ErrNotFound
		}
		return accessgrants.Grant{}, err
	}
	g.Status = accessgrants.Status(status)
	return g, nil
}
