package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"health-record-portal/internal/domain/messages"
)

type messageRepo struct {
	mu   sync.RWMutex
	byID map[string]messages.Message
}

func NewMessageRepo() messages.Repository {
	return &messageRepo{byID: make(map[string]messages.Message)}
}

func (r *messageRepo) Create(ctx context.Context, m messages.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[m.ID] = m
	return nil
}

func (r *messageRepo) Get(ctx context.Context, id string) (messages.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return messages.Message{}, messages.ErrNotFound
	}
	return m, nil
}

func (r *messageRepo) Conversation(ctx context.Context, a, b string, limit int) ([]messages.Message, error) {
	r.mu.RLock()
	out := make([]messages.Message, 0)
	for _, m := range r.byID {
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *messageRepo) MarkRead(ctx context.Context, id string, at time.Time) (messages.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return messages.Message{}, messages.ErrNotFound
	}
	if m.ReadAt == nil {
		m.ReadAt = &at
		r.byID[id] = m
	}
	return m, nil
}
