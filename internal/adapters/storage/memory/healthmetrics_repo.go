package memory

import (
	"context"
	"sort"
	"sync"

	"health-record-portal/internal/domain/healthmetrics"
)

type metricRepo struct {
	mu        sync.RWMutex
	byPatient map[string][]healthmetrics.Metric
}

func NewHealthMetricRepo() healthmetrics.Repository {
	return &metricRepo{byPatient: make(map[string][]healthmetrics.Metric)}
}

func (r *metricRepo) Create(ctx context.Context, m healthmetrics.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byPatient[m.PatientID] = append(r.byPatient[m.PatientID], m)
	return nil
}

func (r *metricRepo) ListByPatient(ctx context.Context, patientID string, limit int) ([]healthmetrics.Metric, error) {
	r.mu.RLock()
	out := append([]healthmetrics.Metric(nil), r.byPatient[patientID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []healthmetrics.Metric{}
	}
	return out, nil
}
