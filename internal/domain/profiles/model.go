package profiles

import (
	"strings"
	"time"

	"health-record-portal/internal/domain/vitals"
)

// ConsultationMode is how a doctor consults, or how a patient prefers to be seen.
// @Enum IN_PERSON_ONLY, ONLINE_ONLY, BOTH
type ConsultationMode string

const (
	ModeInPersonOnly ConsultationMode = "IN_PERSON_ONLY"
	ModeOnlineOnly   ConsultationMode = "ONLINE_ONLY"
	ModeBoth         ConsultationMode = "BOTH"
)

func ParseConsultationMode(s string) (ConsultationMode, bool) {
	m := ConsultationMode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModeInPersonOnly, ModeOnlineOnly, ModeBoth:
		return m, true
	default:
		return "", false
	}
}

func (m ConsultationMode) AllowsOnline() bool   { return m == ModeOnlineOnly || m == ModeBoth }
func (m ConsultationMode) AllowsInPerson() bool { return m == ModeInPersonOnly || m == ModeBoth }

type PatientProfile struct {
	UserID string

	// Level 1
	Age                    *int
	Gender                 string
	PrimaryProblem         string
	Symptoms               []string
	ConsultationPreference ConsultationMode

	// Level 2
	MedicalHistory        []string
	CurrentMedications    []string
	EmergencyContactName  string
	EmergencyContactPhone string

	// Level 3
	BloodPressureSystolic  *int
	BloodPressureDiastolic *int
	BloodSugar             *float64
	HeartRate              *int
	OxygenSaturation       *int

	UpdatedAt time.Time
}

func (p PatientProfile) Vitals() vitals.Reading {
	return vitals.Reading{
		Systolic:         p.BloodPressureSystolic,
		Diastolic:        p.BloodPressureDiastolic,
		BloodSugar:       p.BloodSugar,
		HeartRate:        p.HeartRate,
		OxygenSaturation: p.OxygenSaturation,
	}
}

type DoctorProfile struct {
	UserID string

	// Level 1
	Specialization    string
	ExperienceYears   *int
	ConditionsTreated []string
	ConsultationMode  ConsultationMode
	Availability      string

	// Level 2
	Qualifications []string
	ClinicName     string

	// Level 3
	LicenseDocument string
	Bio             string

	UpdatedAt time.Time
}

// DoctorFilter narrows discovery. Zero values match everything.
type DoctorFilter struct {
	Specialization string
	Mode           ConsultationMode
	Query          string
}

// Matches applies the storage-level part of the filter (specialization and mode).
// A mode filter also accepts doctors offering BOTH.
func (f DoctorFilter) Matches(d DoctorProfile) bool {
	if s := strings.TrimSpace(f.Specialization); s != "" && !strings.EqualFold(s, d.Specialization) {
		return false
	}
	if f.Mode != "" && d.ConsultationMode != f.Mode && d.ConsultationMode != ModeBoth {
		return false
	}
	return true
}
