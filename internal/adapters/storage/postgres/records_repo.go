package postgres

import (
	"context"
	"database/sql"

	"health-record-portal/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medical_records (
			id, patient_id, title, category, description, file_url, record_date, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		rec.ID,
		rec.PatientID,
		rec.Title,
		string(rec.Category),
		rec.Description,
		rec.FileURL,
		rec.RecordDate,
		rec.CreatedAt,
	)
	return err
}

func (r *RecordsRepo) ListByPatient(ctx context.Context, patientID string) ([]records.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, title, category, description, file_url, record_date, created_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY COALESCE(record_date::timestamptz, created_at) DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		var (
			rec      records.Record
			category string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.PatientID,
			&rec.Title,
			&category,
			&rec.Description,
			&rec.FileURL,
			&rec.RecordDate,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Category = records.Category(category)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordsRepo) Delete(ctx context.Context, patientID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medical_records WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}
