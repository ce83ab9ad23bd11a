package healthmetrics

import "context"

type Repository interface {
	Create(ctx context.Context, m Metric) error
	// ListByPatient returns the newest readings first.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]Metric, error)
}
