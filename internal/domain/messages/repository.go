package messages

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Message) error
	Get(ctx context.Context, id string) (Message, error)
	// Conversation returns messages exchanged between a and b, oldest first,
	// capped to the most recent limit.
	Conversation(ctx context.Context, a, b string, limit int) ([]Message, error)
	// MarkRead sets ReadAt once; later calls return the stored message unchanged.
	MarkRead(ctx context.Context, id string, at time.Time) (Message, error)
}
