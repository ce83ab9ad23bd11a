package assignments

import "time"

// Assignment links a patient to a doctor they chose. Immutable once created.
type Assignment struct {
	ID        string
	PatientID string
	DoctorID  string
	CreatedAt time.Time
}
