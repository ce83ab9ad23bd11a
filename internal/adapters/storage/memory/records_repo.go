package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"health-record-portal/internal/domain/records"
)

type recordRepo struct {
	mu   sync.RWMutex
	byID map[string]records.Record
}

func NewRecordRepo() records.Repository {
	return &recordRepo{byID: make(map[string]records.Record)}
}

func (r *recordRepo) Create(ctx context.Context, rec records.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[rec.ID] = rec
	return nil
}

func (r *recordRepo) ListByPatient(ctx context.Context, patientID string) ([]records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.Record, 0)
	for _, rec := range r.byID {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return sortDate(out[i]).After(sortDate(out[j]))
	})
	return out, nil
}

func (r *recordRepo) Delete(ctx context.Context, patientID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.PatientID != patientID {
		return records.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// sortDate falls back to CreatedAt for undated records.
func sortDate(rec records.Record) time.Time {
	if rec.RecordDate != nil {
		return *rec.RecordDate
	}
	return rec.CreatedAt
}
