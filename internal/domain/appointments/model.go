package appointments

import (
	"strings"
	"time"
)

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusDeclined  Status = "DECLINED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusRequested, StatusConfirmed, StatusDeclined, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// Live appointments hold the doctor's slot.
func (s Status) Live() bool { return s == StatusRequested || s == StatusConfirmed }

type Mode string

const (
	ModeInPerson Mode = "IN_PERSON"
	ModeOnline   Mode = "ONLINE"
)

func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeInPerson, ModeOnline:
		return m, true
	}
	return "", false
}

type Appointment struct {
	ID              string
	PatientID       string
	DoctorID        string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            Mode
	Reason          string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter narrows a listing to one party and, optionally, one status.
type Filter struct {
	PatientID string
	DoctorID  string
	Status    Status
}

func (f Filter) Matches(a Appointment) bool {
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	return f.Status == "" || a.Status == f.Status
}
