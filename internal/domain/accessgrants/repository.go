package accessgrants

import (
	"context"
	"time"
)

type Repository interface {
	// UpsertPending writes g as the PENDING row of its pair in one atomic step.
	// An existing row that is not Resettable at now is left untouched and
	// ErrAlreadyPending or ErrAlreadyApproved is returned.
	UpsertPending(ctx context.Context, g Grant, now time.Time) (Grant, error)

	// UpsertApproved writes g as the APPROVED row of its pair unless the
	// existing row is active at now (ErrAlreadyApproved). The original
	// RequestedAt of an existing row is kept.
	UpsertApproved(ctx context.Context, g Grant, now time.Time) (Grant, error)

	// GetForPatient scopes lookups by owner; other patients' grants are ErrNotFound.
	GetForPatient(ctx context.Context, patientID, grantID string) (Grant, error)
	GetByPair(ctx context.Context, patientID, doctorID string) (Grant, error)
	Update(ctx context.Context, g Grant) error

	ListByDoctor(ctx context.Context, doctorID string) ([]Grant, error)
	ListByPatient(ctx context.Context, patientID string) ([]Grant, error)
}
