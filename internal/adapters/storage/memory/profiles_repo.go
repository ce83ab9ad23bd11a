package memory

import (
	"context"
	"sort"
	"sync"

	"health-record-portal/internal/domain/profiles"
)

type profileRepo struct {
	mu       sync.RWMutex
	patients map[string]profiles.PatientProfile
	doctors  map[string]profiles.DoctorProfile
}

func NewProfileRepo() profiles.Repository {
	return &profileRepo{
		patients: make(map[string]profiles.PatientProfile),
		doctors:  make(map[string]profiles.DoctorProfile),
	}
}

func (r *profileRepo) GetPatient(ctx context.Context, userID string) (profiles.PatientProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[userID]
	if !ok {
		return profiles.PatientProfile{}, profiles.ErrNotFound
	}
	return clonePatient(p), nil
}

func (r *profileRepo) SavePatient(ctx context.Context, p profiles.PatientProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patients[p.UserID] = clonePatient(p)
	return nil
}

func (r *profileRepo) GetDoctor(ctx context.Context, userID string) (profiles.DoctorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[userID]
	if !ok {
		return profiles.DoctorProfile{}, profiles.ErrNotFound
	}
	return cloneDoctor(d), nil
}

func (r *profileRepo) SaveDoctor(ctx context.Context, d profiles.DoctorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doctors[d.UserID] = cloneDoctor(d)
	return nil
}

func (r *profileRepo) ListDoctors(ctx context.Context, f profiles.DoctorFilter) ([]profiles.DoctorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profiles.DoctorProfile, 0)
	for _, d := range r.doctors {
		if f.Matches(d) {
			out = append(out, cloneDoctor(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Slices are copied so callers never share backing arrays with the store.
func clonePatient(p profiles.PatientProfile) profiles.PatientProfile {
	p.Symptoms = append([]string(nil), p.Symptoms...)
	p.MedicalHistory = append([]string(nil), p.MedicalHistory...)
	p.CurrentMedications = append([]string(nil), p.CurrentMedications...)
	return p
}

func cloneDoctor(d profiles.DoctorProfile) profiles.DoctorProfile {
	d.ConditionsTreated = append([]string(nil), d.ConditionsTreated...)
	d.Qualifications = append([]string(nil), d.Qualifications...)
	return d
}
