package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"health-record-portal/internal/domain/accessgrants"
)

type pairKey struct{ patientID, doctorID string }

// grantRepo keeps one row per pair. The pair check and the write happen
// under the same lock.
type grantRepo struct {
	mu     sync.RWMutex
	byID   map[string]accessgrants.Grant
	byPair map[pairKey]string
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID:   make(map[string]accessgrants.Grant),
		byPair: make(map[pairKey]string),
	}
}

func (r *grantRepo) UpsertPending(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{g.PatientID, g.DoctorID}
	if id, ok := r.byPair[key]; ok {
		cur := r.byID[id]
		switch {
		case cur.Status == accessgrants.StatusPending:
			return accessgrants.Grant{}, accessgrants.ErrAlreadyPending
		case cur.ActiveAt(now):
			return accessgrants.Grant{}, accessgrants.ErrAlreadyApproved
		}
		g.ID = cur.ID
		g.GrantedAt = nil
		g.ExpiresAt = nil
	}

	r.byID[g.ID] = g
	r.byPair[key] = g.ID
	return g, nil
}

func (r *grantRepo) UpsertApproved(ctx context.Context, g accessgrants.Grant, now time.Time) (accessgrants.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{g.PatientID, g.DoctorID}
	if id, ok := r.byPair[key]; ok {
		cur := r.byID[id]
		if cur.ActiveAt(now) {
			return accessgrants.Grant{}, accessgrants.ErrAlreadyApproved
		}
		g.ID = cur.ID
		g.RequestedAt = cur.RequestedAt
	}

	r.byID[g.ID] = g
	r.byPair[key] = g.ID
	return g, nil
}

func (r *grantRepo) GetForPatient(ctx context.Context, patientID, grantID string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[grantID]
	if !ok || g.PatientID != patientID {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, nil
}

func (r *grantRepo) GetByPair(ctx context.Context, patientID, doctorID string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPair[pairKey{patientID, doctorID}]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *grantRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[g.ID]
	if !ok {
		return accessgrants.ErrNotFound
	}
	// The pair never changes.
	g.PatientID, g.DoctorID = cur.PatientID, cur.DoctorID
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) ListByDoctor(ctx context.Context, doctorID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.DoctorID == doctorID }), nil
}

func (r *grantRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.PatientID == patientID }), nil
}

// list orders by UpdatedAt desc, like the SQL adapter.
func (r *grantRepo) list(keep func(accessgrants.Grant) bool) []accessgrants.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
