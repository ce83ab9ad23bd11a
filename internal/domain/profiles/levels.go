package profiles

import "strings"

// MaxSymptoms caps the level 1 symptom list.
const MaxSymptoms = 3

// PatientLevel is the highest level whose checklist, and every lower one, is complete.
func PatientLevel(p PatientProfile) int {
	switch {
	case len(PatientMissing(p, 1)) > 0:
		return 0
	case len(PatientMissing(p, 2)) > 0:
		return 1
	case len(PatientMissing(p, 3)) > 0:
		return 2
	default:
		return 3
	}
}

// PatientMissing lists the fields still needed for the checklist of level alone.
func PatientMissing(p PatientProfile, level int) []string {
	var out []string
	switch level {
	case 1:
		if p.Age == nil {
			out = append(out, "age")
		}
		if blank(p.Gender) {
			out = append(out, "gender")
		}
		if blank(p.PrimaryProblem) {
			out = append(out, "primaryProblem")
		}
		if len(p.Symptoms) == 0 || len(p.Symptoms) > MaxSymptoms {
			out = append(out, "symptoms")
		}
		if p.ConsultationPreference == "" {
			out = append(out, "consultationPreference")
		}
	case 2:
		// Any one recommended entry is enough.
		hasContact := !blank(p.EmergencyContactName) && !blank(p.EmergencyContactPhone)
		if len(p.MedicalHistory) == 0 && len(p.CurrentMedications) == 0 && !hasContact {
			out = append(out, "medicalHistory|currentMedications|emergencyContact")
		}
	case 3:
		if p.BloodPressureSystolic == nil || p.BloodPressureDiastolic == nil {
			out = append(out, "bloodPressure")
		}
		if p.BloodSugar == nil {
			out = append(out, "bloodSugar")
		}
		if p.HeartRate == nil {
			out = append(out, "heartRate")
		}
		if p.OxygenSaturation == nil {
			out = append(out, "oxygenSaturation")
		}
	}
	return out
}

func DoctorLevel(d DoctorProfile) int {
	switch {
	case len(DoctorMissing(d, 1)) > 0:
		return 0
	case len(DoctorMissing(d, 2)) > 0:
		return 1
	case len(DoctorMissing(d, 3)) > 0:
		return 2
	default:
		return 3
	}
}

func DoctorMissing(d DoctorProfile, level int) []string {
	var out []string
	switch level {
	case 1:
		if blank(d.Specialization) {
			out = append(out, "specialization")
		}
		if d.ExperienceYears == nil {
			out = append(out, "experienceYears")
		}
		if len(d.ConditionsTreated) == 0 {
			out = append(out, "conditionsTreated")
		}
		if d.ConsultationMode == "" {
			out = append(out, "consultationMode")
		}
		if blank(d.Availability) {
			out = append(out, "availability")
		}
	case 2:
		if len(d.Qualifications) == 0 {
			out = append(out, "qualifications")
		}
		if blank(d.ClinicName) {
			out = append(out, "clinicName")
		}
	case 3:
		if blank(d.LicenseDocument) {
			out = append(out, "licenseDocument")
		}
		if blank(d.Bio) {
			out = append(out, "bio")
		}
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
