package assignments

import "context"

type Repository interface {
	// Create returns ErrAlreadyAssigned when the pair exists.
	Create(ctx context.Context, a Assignment) error
	Exists(ctx context.Context, patientID, doctorID string) (bool, error)
	ListByPatient(ctx context.Context, patientID string) ([]Assignment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]Assignment, error)
}
