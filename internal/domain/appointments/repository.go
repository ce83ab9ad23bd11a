package appointments

import (
	"context"
	"time"
)

type Repository interface {
	// Create fails with ErrSlotTaken when the doctor already has a live
	// appointment at the same ScheduledAt.
	Create(ctx context.Context, a Appointment) error
	Get(ctx context.Context, id string) (Appointment, error)
	// List orders by ScheduledAt ascending.
	List(ctx context.Context, f Filter) ([]Appointment, error)
	// Transition moves id from one status to another. ErrStaleStatus when
	// the stored status is no longer from.
	Transition(ctx context.Context, id string, from, to Status, at time.Time) (Appointment, error)
}
