package records

import "context"

type Repository interface {
	Create(ctx context.Context, rec Record) error
	// ListByPatient orders by record date, newest first.
	ListByPatient(ctx context.Context, patientID string) ([]Record, error)
	// Delete returns ErrNotFound unless patientID owns id.
	Delete(ctx context.Context, patientID, id string) error
}
