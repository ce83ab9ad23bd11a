package memory

import (
	"context"
	"sort"
	"sync"

	"health-record-portal/internal/domain/assignments"
)

type assignmentRepo struct {
	mu     sync.RWMutex
	byPair map[pairKey]assignments.Assignment
}

func NewAssignmentRepo() assignments.Repository {
	return &assignmentRepo{byPair: make(map[pairKey]assignments.Assignment)}
}

func (r *assignmentRepo) Create(ctx context.Context, a assignments.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{a.PatientID, a.DoctorID}
	if _, exists := r.byPair[key]; exists {
		return assignments.ErrAlreadyAssigned
	}
	r.byPair[key] = a
	return nil
}

func (r *assignmentRepo) Exists(ctx context.Context, patientID, doctorID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byPair[pairKey{patientID, doctorID}]
	return ok, nil
}

func (r *assignmentRepo) ListByPatient(ctx context.Context, patientID string) ([]assignments.Assignment, error) {
	return r.list(func(a assignments.Assignment) bool { return a.PatientID == patientID }), nil
}

func (r *assignmentRepo) ListByDoctor(ctx context.Context, doctorID string) ([]assignments.Assignment, error) {
	return r.list(func(a assignments.Assignment) bool { return a.DoctorID == doctorID }), nil
}

func (r *assignmentRepo) list(keep func(assignments.Assignment) bool) []assignments.Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]assignments.Assignment, 0)
	for _, a := range r.byPair {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
