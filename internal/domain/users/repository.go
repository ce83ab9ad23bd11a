package users

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListByIDs(ctx context.Context, ids []string) ([]User, error)

	// RaiseLevel stores level only if it is above the stored one and
	// returns the user as persisted afterwards.
	RaiseLevel(ctx context.Context, id string, level int, at time.Time) (User, error)
}
