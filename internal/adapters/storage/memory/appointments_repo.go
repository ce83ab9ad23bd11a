package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"health-record-portal/internal/domain/appointments"
)

// appointmentRepo enforces one live appointment per doctor and start time,
// mirroring the partial unique index of the SQL schema.
type appointmentRepo struct {
	mu   sync.RWMutex
	byID map[string]appointments.Appointment
}

func NewAppointmentRepo() appointments.Repository {
	return &appointmentRepo{byID: make(map[string]appointments.Appointment)}
}

func (r *appointmentRepo) Create(ctx context.Context, a appointments.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slotTakenLocked(a.DoctorID, a.ScheduledAt, a.ID) {
		return appointments.ErrSlotTaken
	}
	r.byID[a.ID] = a
	return nil
}

func (r *appointmentRepo) Get(ctx context.Context, id string) (appointments.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return a, nil
}

func (r *appointmentRepo) List(ctx context.Context, f appointments.Filter) ([]appointments.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]appointments.Appointment, 0)
	for _, a := range r.byID {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *appointmentRepo) Transition(ctx context.Context, id string, from, to appointments.Status, at time.Time) (appointments.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	if a.Status != from {
		return appointments.Appointment{}, appointments.ErrStaleStatus
	}
	a.Status = to
	a.UpdatedAt = at
	r.byID[id] = a
	return a, nil
}

func (r *appointmentRepo) slotTakenLocked(doctorID string, at time.Time, exceptID string) bool {
	for _, x := range r.byID {
		if x.ID != exceptID && x.DoctorID == doctorID && x.Status.Live() && x.ScheduledAt.Equal(at) {
			return true
		}
	}
	return false
}
