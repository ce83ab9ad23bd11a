package postgres

import (
	"context"
	"database/sql"

	"health-record-portal/internal/domain/healthmetrics"
)

type HealthMetricsRepo struct {
	db *sql.DB
}

func NewHealthMetricsRepo(db *sql.DB) *HealthMetricsRepo {
	return &HealthMetricsRepo{db: db}
}

func (r *HealthMetricsRepo) Create(ctx context.Context, m healthmetrics.Metric) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO health_metrics (
			id, patient_id,
			systolic, diastolic, blood_sugar, heart_rate, oxygen_saturation, weight_kg,
			recorded_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		m.ID,
		m.PatientID,
		m.Systolic,
		m.Diastolic,
		m.BloodSugar,
		m.HeartRate,
		m.OxygenSaturation,
		m.WeightKg,
		m.RecordedAt,
		m.CreatedAt,
	)
	return err
}

func (r *HealthMetricsRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]healthmetrics.Metric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, patient_id,
			systolic, diastolic, blood_sugar, heart_rate, oxygen_saturation, weight_kg,
			recorded_at, created_at
		FROM health_metrics
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]healthmetrics.Metric, 0)
	for rows.Next() {
		var m healthmetrics.Metric
		if err := rows.Scan(
			&m.ID,
			&m.PatientID,
			&m.Systolic,
			&m.Diastolic,
			&m.BloodSugar,
			&m.HeartRate,
			&m.OxygenSaturation,
			&m.WeightKg,
			&m.RecordedAt,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
