package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/platform/apperr"
)

type userRepo struct {
	mu      sync.RWMutex
	byID    map[string]users.User
	byEmail map[string]string
}

func NewUserRepo() users.Repository {
	return &userRepo{
		byID:    make(map[string]users.User),
		byEmail: make(map[string]string),
	}
}

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := r.byEmail[email]; taken && email != "" {
		return users.ErrEmailTaken
	}
	if _, exists := r.byID[u.ID]; exists {
		return apperr.Conflict("user already exists")
	}
	r.byID[u.ID] = u
	if email != "" {
		r.byEmail[email] = u.ID
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *userRepo) ListByIDs(ctx context.Context, ids []string) ([]users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]users.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepo) RaiseLevel(ctx context.Context, id string, level int, at time.Time) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if level > u.ProfileLevel {
		u.ProfileLevel = level
		u.UpdatedAt = at
		r.byID[id] = u
	}
	return u, nil
}
