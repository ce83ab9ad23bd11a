package profiles

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/domain/vitals"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpx"
)

// Section is one of the three profile forms.
type Section string

const (
	SectionBasic       Section = "basic"
	SectionRecommended Section = "recommended"
	SectionAdvanced    Section = "advanced"
)

// RequiredLevel gates the later sections behind a completed basic profile.
func (s Section) RequiredLevel() int {
	if s == SectionBasic {
		return 0
	}
	return 1
}

func RegisterRoutes(r chi.Router, svc *Service, gate *tier.Gate) {
	r.Get("/profile", getProfileHandler(svc, gate))
	r.Post("/profile/basic", saveSectionHandler(svc, gate, SectionBasic))
	r.Post("/profile/recommended", saveSectionHandler(svc, gate, SectionRecommended))
	r.Post("/profile/advanced", saveSectionHandler(svc, gate, SectionAdvanced))

	// Discovery (patients)
	r.Get("/doctors", listDoctorsHandler(svc, gate))
	r.Get("/doctors/{doctorID}", getDoctorHandler(svc, gate))

	// Doctor read under an active grant
	r.Get("/doctor/patient-profile", patientProfileForDoctorHandler(svc, gate))
}

type patientProfileResponse struct {
	Age                    *int             `json:"age,omitempty"`
	Gender                 string           `json:"gender"`
	PrimaryProblem         string           `json:"primaryProblem"`
	Symptoms               []string         `json:"symptoms"`
	ConsultationPreference ConsultationMode `json:"consultationPreference,omitempty"`
	MedicalHistory         []string         `json:"medicalHistory"`
	CurrentMedications     []string         `json:"currentMedications"`
	EmergencyContactName   string           `json:"emergencyContactName"`
	EmergencyContactPhone  string           `json:"emergencyContactPhone"`
	BloodPressureSystolic  *int             `json:"bloodPressureSystolic,omitempty"`
	BloodPressureDiastolic *int             `json:"bloodPressureDiastolic,omitempty"`
	BloodSugar             *float64         `json:"bloodSugar,omitempty"`
	HeartRate              *int             `json:"heartRate,omitempty"`
	OxygenSaturation       *int             `json:"oxygenSaturation,omitempty"`
	VitalsLabels           vitals.Labels    `json:"vitalsLabels"`
	UpdatedAt              *time.Time       `json:"updatedAt,omitempty"`
}

type doctorProfileResponse struct {
	Specialization    string           `json:"specialization"`
	ExperienceYears   *int             `json:"experienceYears,omitempty"`
	ConditionsTreated []string         `json:"conditionsTreated"`
	ConsultationMode  ConsultationMode `json:"consultationMode,omitempty"`
	Availability      string           `json:"availability"`
	Qualifications    []string         `json:"qualifications"`
	ClinicName        string           `json:"clinicName"`
	LicenseDocument   string           `json:"licenseDocument,omitempty"`
	Bio               string           `json:"bio"`
	UpdatedAt         *time.Time       `json:"updatedAt,omitempty"`
}

type profileResponse struct {
	UserID       string                  `json:"userId"`
	Role         users.Role              `json:"role"`
	ProfileLevel int                     `json:"profileLevel"`
	Missing      []string                `json:"missingForNextLevel,omitempty"`
	Patient      *patientProfileResponse `json:"patient,omitempty"`
	Doctor       *doctorProfileResponse  `json:"doctor,omitempty"`
}

type doctorCardResponse struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Email    string                `json:"email"`
	Level    int                   `json:"profileLevel"`
	Verified bool                  `json:"verified"`
	Profile  doctorProfileResponse `json:"profile"`
}

// getProfileHandler godoc
// @Summary Own profile and stored level
// @Tags profile
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} profileResponse
// @Failure 401 {object} map[string]string
// @Router /profile [get]
func getProfileHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", 0)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		v, err := svc.Get(r.Context(), ident.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toProfileResponse(v))
	}
}

// saveSectionHandler godoc
// @Summary Save a profile section
// @Description Partial update: absent fields are left untouched. The level is recomputed and only ever raised. Recommended and advanced sections need level 1.
// @Tags profile
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param payload body PatientBasic true "fields depend on role and section"
// @Success 200 {object} profileResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string "complete your profile to level 1 to use this feature"
// @Router /profile/basic [post]
func saveSectionHandler(svc *Service, gate *tier.Gate, section Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, "", section.RequiredLevel())
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var v View
		switch ident.Role {
		case users.RolePatient:
			v, err = savePatientSection(r, svc, ident.UserID, section)
		case users.RoleDoctor:
			v, err = saveDoctorSection(r, svc, ident.UserID, section)
		default:
			err = ErrWrongRole
		}
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toProfileResponse(v))
	}
}

func savePatientSection(r *http.Request, svc *Service, userID string, section Section) (View, error) {
	switch section {
	case SectionBasic:
		var in PatientBasic
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SavePatientBasic(r.Context(), userID, in)
	case SectionRecommended:
		var in PatientRecommended
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SavePatientRecommended(r.Context(), userID, in)
	default:
		var in PatientAdvanced
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SavePatientAdvanced(r.Context(), userID, in)
	}
}

func saveDoctorSection(r *http.Request, svc *Service, userID string, section Section) (View, error) {
	switch section {
	case SectionBasic:
		var in DoctorBasic
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SaveDoctorBasic(r.Context(), userID, in)
	case SectionRecommended:
		var in DoctorRecommended
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SaveDoctorRecommended(r.Context(), userID, in)
	default:
		var in DoctorAdvanced
		if err := httpx.DecodeJSON(r, &in); err != nil {
			return View{}, err
		}
		return svc.SaveDoctorAdvanced(r.Context(), userID, in)
	}
}

// listDoctorsHandler godoc
// @Summary Discover doctors
// @Tags doctors
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param specialization query string false "exact specialization, case-insensitive"
// @Param mode query string false "IN_PERSON_ONLY, ONLINE_ONLY or BOTH"
// @Param q query string false "free text over name, specialization, clinic, conditions"
// @Success 200 {array} doctorCardResponse
// @Router /doctors [get]
func listDoctorsHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := gate.Authorize(r, users.RolePatient, 1); err != nil {
			httpx.WriteError(w, err)
			return
		}

		f := DoctorFilter{
			Specialization: r.URL.Query().Get("specialization"),
			Query:          r.URL.Query().Get("q"),
		}
		if raw := r.URL.Query().Get("mode"); strings.TrimSpace(raw) != "" {
			m, ok := ParseConsultationMode(raw)
			if !ok {
				httpx.WriteError(w, errMode)
				return
			}
			f.Mode = m
		}

		items, err := svc.ListDoctors(r.Context(), f)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]doctorCardResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toDoctorCardResponse(c))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func getDoctorHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := gate.Authorize(r, users.RolePatient, 1); err != nil {
			httpx.WriteError(w, err)
			return
		}

		c, err := svc.GetDoctor(r.Context(), chi.URLParam(r, "doctorID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toDoctorCardResponse(c))
	}
}

// patientProfileForDoctorHandler godoc
// @Summary Read a patient's profile under an active access grant
// @Tags doctor
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param patientId query string true "patient user id"
// @Success 200 {object} profileResponse
// @Failure 400 {object} map[string]string "patientId required"
// @Failure 403 {object} map[string]string "no active access grant for this patient"
// @Failure 404 {object} map[string]string "patient not found"
// @Router /doctor/patient-profile [get]
func patientProfileForDoctorHandler(svc *Service, gate *tier.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := gate.Authorize(r, users.RoleDoctor, 1)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
		if patientID == "" {
			httpx.WriteError(w, apperr.Validation("patientId required"))
			return
		}

		v, err := svc.PatientProfileFor(r.Context(), ident.UserID, patientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		resp := toProfileResponse(v)
		resp.Missing = nil
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

func toProfileResponse(v View) profileResponse {
	out := profileResponse{
		UserID:       v.UserID,
		Role:         v.Role,
		ProfileLevel: v.Level,
		Missing:      v.NextMissing(),
	}
	if v.Patient != nil {
		p := toPatientProfileResponse(*v.Patient)
		out.Patient = &p
	}
	if v.Doctor != nil {
		d := toDoctorProfileResponse(*v.Doctor)
		out.Doctor = &d
	}
	return out
}

func toPatientProfileResponse(p PatientProfile) patientProfileResponse {
	return patientProfileResponse{
		Age:                    p.Age,
		Gender:                 p.Gender,
		PrimaryProblem:         p.PrimaryProblem,
		Symptoms:               nonNil(p.Symptoms),
		ConsultationPreference: p.ConsultationPreference,
		MedicalHistory:         nonNil(p.MedicalHistory),
		CurrentMedications:     nonNil(p.CurrentMedications),
		EmergencyContactName:   p.EmergencyContactName,
		EmergencyContactPhone:  p.EmergencyContactPhone,
		BloodPressureSystolic:  p.BloodPressureSystolic,
		BloodPressureDiastolic: p.BloodPressureDiastolic,
		BloodSugar:             p.BloodSugar,
		HeartRate:              p.HeartRate,
		OxygenSaturation:       p.OxygenSaturation,
		VitalsLabels:           vitals.Classify(p.Vitals()),
		UpdatedAt:              timePtr(p.UpdatedAt),
	}
}

func toDoctorProfileResponse(d DoctorProfile) doctorProfileResponse {
	return doctorProfileResponse{
		Specialization:    d.Specialization,
		ExperienceYears:   d.ExperienceYears,
		ConditionsTreated: nonNil(d.ConditionsTreated),
		ConsultationMode:  d.ConsultationMode,
		Availability:      d.Availability,
		Qualifications:    nonNil(d.Qualifications),
		ClinicName:        d.ClinicName,
		LicenseDocument:   d.LicenseDocument,
		Bio:               d.Bio,
		UpdatedAt:         timePtr(d.UpdatedAt),
	}
}

func toDoctorCardResponse(c DoctorCard) doctorCardResponse {
	p := toDoctorProfileResponse(c.Profile)
	// License documents stay private to the doctor.
	p.LicenseDocument = ""
	return doctorCardResponse{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Level:    c.Level,
		Verified: c.Verified,
		Profile:  p,
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
