package profiles

import "context"

// Save* are upserts keyed by user id. Get* return ErrNotFound for users
// who never saved a section.
type Repository interface {
	GetPatient(ctx context.Context, userID string) (PatientProfile, error)
	SavePatient(ctx context.Context, p PatientProfile) error

	GetDoctor(ctx context.Context, userID string) (DoctorProfile, error)
	SaveDoctor(ctx context.Context, d DoctorProfile) error

	// ListDoctors applies DoctorFilter.Matches; Query is left to the service.
	ListDoctors(ctx context.Context, f DoctorFilter) ([]DoctorProfile, error)
}
