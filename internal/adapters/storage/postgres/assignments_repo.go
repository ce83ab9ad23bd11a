package postgres

import (
	"context"
	"database/sql"

	"health-record-portal/internal/domain/assignments"
)

type AssignmentsRepo struct {
	db *sql.DB
}

func NewAssignmentsRepo(db *sql.DB) *AssignmentsRepo {
	return &AssignmentsRepo{db: db}
}

func (r *AssignmentsRepo) Create(ctx context.Context, a assignments.Assignment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, patient_id, doctor_id, created_at)
		VALUES ($1,$2,$3,$4)
	`, a.ID, a.PatientID, a.DoctorID, a.CreatedAt)
	if isUniqueViolation(err, "assignments_pair_key") {
		return assignments.ErrAlreadyAssigned
	}
	return err
}

func (r *AssignmentsRepo) Exists(ctx context.Context, patientID, doctorID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM assignments WHERE patient_id = $1 AND doctor_id = $2)
	`, patientID, doctorID).Scan(&ok)
	return ok, err
}

func (r *AssignmentsRepo) ListByPatient(ctx context.Context, patientID string) ([]assignments.Assignment, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *AssignmentsRepo) ListByDoctor(ctx context.Context, doctorID string) ([]assignments.Assignment, error) {
	return r.list(ctx, `WHERE doctor_id = $1`, doctorID)
}

func (r *AssignmentsRepo) list(ctx context.Context, where string, arg string) ([]assignments.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, doctor_id, created_at
		FROM assignments
		`+where+`
		ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]assignments.Assignment, 0)
	for rows.Next() {
		var a assignments.Assignment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
