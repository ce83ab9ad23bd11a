package profiles

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/domain/vitals"
	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/sanitize"
)

const (
	maxTextLen  = 500
	maxBioLen   = 2000
	maxListLen  = 50
	maxAge      = 130
	maxYearsExp = 70
)

var (
	ErrNotFound        = apperr.NotFound("profile not found")
	ErrDoctorNotFound  = apperr.NotFound("doctor not found")
	ErrPatientNotFound = apperr.NotFound("patient not found")
	ErrWrongRole       = apperr.Forbidden("profile section does not match account role")

	errAge        = apperr.Validation(fmt.Sprintf("age must be between 0 and %d", maxAge))
	errSymptoms   = apperr.Validation(fmt.Sprintf("symptoms accepts at most %d entries", MaxSymptoms))
	errMode       = apperr.Validation("consultation mode must be IN_PERSON_ONLY, ONLINE_ONLY or BOTH")
	errPhone      = apperr.Validation("emergencyContactPhone is not a valid phone number")
	errExperience = apperr.Validation(fmt.Sprintf("experienceYears must be between 0 and %d", maxYearsExp))
	errListLen    = apperr.Validation(fmt.Sprintf("lists accept at most %d entries", maxListLen))
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{6,20}$`)

// Accounts is the part of the users service profiles depend on.
type Accounts interface {
	Get(ctx context.Context, id string) (users.User, error)
	GetMany(ctx context.Context, ids []string) (map[string]users.User, error)
	RaiseLevel(ctx context.Context, id string, level int) (users.User, error)
}

// AccessChecker answers whether a doctor currently holds an active grant.
type AccessChecker interface {
	RequireActive(ctx context.Context, doctorID, patientID string) error
}

type Service struct {
	repo     Repository
	accounts Accounts
	access   AccessChecker
	text     *sanitize.Text
	now      func() time.Time
	log      logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, accounts Accounts, access AccessChecker, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		accounts: accounts,
		access:   access,
		text:     sanitize.NewText(),
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a profile together with the stored (ratcheted) level.
type View struct {
	UserID  string
	Role    users.Role
	Level   int
	Patient *PatientProfile
	Doctor  *DoctorProfile
}

// NextMissing lists what the next level still needs, nil at the top level.
func (v View) NextMissing() []string {
	if v.Level >= users.MaxLevel {
		return nil
	}
	switch {
	case v.Patient != nil:
		return PatientMissing(*v.Patient, v.Level+1)
	case v.Doctor != nil:
		return DoctorMissing(*v.Doctor, v.Level+1)
	}
	return nil
}

// -------------------------
// Section inputs. Nil = leave untouched.
// -------------------------

type PatientBasic struct {
	Age                    *int      `json:"age"`
	Gender                 *string   `json:"gender"`
	PrimaryProblem         *string   `json:"primaryProblem"`
	Symptoms               *[]string `json:"symptoms"`
	ConsultationPreference *string   `json:"consultationPreference"`
}

type PatientRecommended struct {
	MedicalHistory        *[]string `json:"medicalHistory"`
	CurrentMedications    *[]string `json:"currentMedications"`
	EmergencyContactName  *string   `json:"emergencyContactName"`
	EmergencyContactPhone *string   `json:"emergencyContactPhone"`
}

type PatientAdvanced struct {
	BloodPressureSystolic  *int     `json:"bloodPressureSystolic"`
	BloodPressureDiastolic *int     `json:"bloodPressureDiastolic"`
	BloodSugar             *float64 `json:"bloodSugar"`
	HeartRate              *int     `json:"heartRate"`
	OxygenSaturation       *int     `json:"oxygenSaturation"`
}

type DoctorBasic struct {
	Specialization    *string   `json:"specialization"`
	ExperienceYears   *int      `json:"experienceYears"`
	ConditionsTreated *[]string `json:"conditionsTreated"`
	ConsultationMode  *string   `json:"consultationMode"`
	Availability      *string   `json:"availability"`
}

type DoctorRecommended struct {
	Qualifications *[]string `json:"qualifications"`
	ClinicName     *string   `json:"clinicName"`
}

type DoctorAdvanced struct {
	LicenseDocument *string `json:"licenseDocument"`
	Bio             *string `json:"bio"`
}

// -------------------------
// Reads
// -------------------------

// Get returns the caller's own profile; an empty one when nothing was saved yet.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	u, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	v := View{UserID: u.ID, Role: u.Role, Level: u.ProfileLevel}

	switch u.Role {
	case users.RolePatient:
		p, err := s.loadPatient(ctx, u.ID)
		if err != nil {
			return View{}, err
		}
		v.Patient = &p
	case users.RoleDoctor:
		d, err := s.loadDoctor(ctx, u.ID)
		if err != nil {
			return View{}, err
		}
		v.Doctor = &d
	}
	return v, nil
}

// PatientProfileFor lets a doctor read a patient's profile under an active grant.
func (s *Service) PatientProfileFor(ctx context.Context, doctorID, patientID string) (View, error) {
	patientID = strings.TrimSpace(patientID)
	u, err := s.accounts.Get(ctx, patientID)
	if err != nil || u.Role != users.RolePatient {
		if err == nil || errors.Is(err, users.ErrNotFound) {
			return View{}, ErrPatientNotFound
		}
		return View{}, err
	}
	if err := s.access.RequireActive(ctx, doctorID, patientID); err != nil {
		return View{}, err
	}

	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return View{}, err
	}
	return View{UserID: u.ID, Role: u.Role, Level: u.ProfileLevel, Patient: &p}, nil
}

func (s *Service) loadPatient(ctx context.Context, userID string) (PatientProfile, error) {
	p, err := s.repo.GetPatient(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return PatientProfile{UserID: userID}, nil
	}
	return p, err
}

func (s *Service) loadDoctor(ctx context.Context, userID string) (DoctorProfile, error) {
	d, err := s.repo.GetDoctor(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return DoctorProfile{UserID: userID}, nil
	}
	return d, err
}

// -------------------------
// Patient sections
// -------------------------

func (s *Service) SavePatientBasic(ctx context.Context, userID string, in PatientBasic) (View, error) {
	return s.savePatient(ctx, userID, func(p *PatientProfile) error {
		if in.Age != nil {
			if *in.Age < 0 || *in.Age > maxAge {
				return errAge
			}
			p.Age = in.Age
		}
		if in.Gender != nil {
			v, err := s.cleanText("gender", *in.Gender, maxTextLen)
			if err != nil {
				return err
			}
			p.Gender = v
		}
		if in.PrimaryProblem != nil {
			v, err := s.cleanText("primaryProblem", *in.PrimaryProblem, maxTextLen)
			if err != nil {
				return err
			}
			p.PrimaryProblem = v
		}
		if in.Symptoms != nil {
			list, err := s.cleanList("symptoms", *in.Symptoms)
			if err != nil {
				return err
			}
			if len(list) > MaxSymptoms {
				return errSymptoms
			}
			p.Symptoms = list
		}
		if in.ConsultationPreference != nil {
			m, err := optionalMode(*in.ConsultationPreference)
			if err != nil {
				return err
			}
			p.ConsultationPreference = m
		}
		return nil
	})
}

func (s *Service) SavePatientRecommended(ctx context.Context, userID string, in PatientRecommended) (View, error) {
	return s.savePatient(ctx, userID, func(p *PatientProfile) error {
		if in.MedicalHistory != nil {
			list, err := s.cleanList("medicalHistory", *in.MedicalHistory)
			if err != nil {
				return err
			}
			if len(list) > maxListLen {
				return errListLen
			}
			p.MedicalHistory = list
		}
		if in.CurrentMedications != nil {
			list, err := s.cleanList("currentMedications", *in.CurrentMedications)
			if err != nil {
				return err
			}
			if len(list) > maxListLen {
				return errListLen
			}
			p.CurrentMedications = list
		}
		if in.EmergencyContactName != nil {
			v, err := s.cleanText("emergencyContactName", *in.EmergencyContactName, maxTextLen)
			if err != nil {
				return err
			}
			p.EmergencyContactName = v
		}
		if in.EmergencyContactPhone != nil {
			phone := strings.TrimSpace(*in.EmergencyContactPhone)
			if phone != "" && !phonePattern.MatchString(phone) {
				return errPhone
			}
			p.EmergencyContactPhone = phone
		}
		return nil
	})
}

func (s *Service) SavePatientAdvanced(ctx context.Context, userID string, in PatientAdvanced) (View, error) {
	return s.savePatient(ctx, userID, func(p *PatientProfile) error {
		incoming := vitals.Reading{
			Systolic:         in.BloodPressureSystolic,
			Diastolic:        in.BloodPressureDiastolic,
			BloodSugar:       in.BloodSugar,
			HeartRate:        in.HeartRate,
			OxygenSaturation: in.OxygenSaturation,
		}
		if err := vitals.Validate(incoming); err != nil {
			return err
		}

		if in.BloodPressureSystolic != nil {
			p.BloodPressureSystolic = in.BloodPressureSystolic
		}
		if in.BloodPressureDiastolic != nil {
			p.BloodPressureDiastolic = in.BloodPressureDiastolic
		}
		if in.BloodSugar != nil {
			p.BloodSugar = in.BloodSugar
		}
		if in.HeartRate != nil {
			p.HeartRate = in.HeartRate
		}
		if in.OxygenSaturation != nil {
			p.OxygenSaturation = in.OxygenSaturation
		}
		// A half update must still leave a coherent pair.
		return vitals.Validate(p.Vitals())
	})
}

func (s *Service) savePatient(ctx context.Context, userID string, apply func(*PatientProfile) error) (View, error) {
	u, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if u.Role != users.RolePatient {
		return View{}, ErrWrongRole
	}

	p, err := s.loadPatient(ctx, u.ID)
	if err != nil {
		return View{}, err
	}
	if err := apply(&p); err != nil {
		return View{}, err
	}
	p.UserID = u.ID
	p.UpdatedAt = s.now()

	if err := s.repo.SavePatient(ctx, p); err != nil {
		return View{}, err
	}

	stored, err := s.accounts.RaiseLevel(ctx, u.ID, PatientLevel(p))
	if err != nil {
		return View{}, err
	}
	return View{UserID: u.ID, Role: u.Role, Level: stored.ProfileLevel, Patient: &p}, nil
}

// -------------------------
// Doctor sections
// -------------------------

func (s *Service) SaveDoctorBasic(ctx context.Context, userID string, in DoctorBasic) (View, error) {
	return s.saveDoctor(ctx, userID, func(d *DoctorProfile) error {
		if in.Specialization != nil {
			v, err := s.cleanText("specialization", *in.Specialization, maxTextLen)
			if err != nil {
				return err
			}
			d.Specialization = v
		}
		if in.ExperienceYears != nil {
			if *in.ExperienceYears < 0 || *in.ExperienceYears > maxYearsExp {
				return errExperience
			}
			d.ExperienceYears = in.ExperienceYears
		}
		if in.ConditionsTreated != nil {
			list, err := s.cleanList("conditionsTreated", *in.ConditionsTreated)
			if err != nil {
				return err
			}
			if len(list) > maxListLen {
				return errListLen
			}
			d.ConditionsTreated = list
		}
		if in.ConsultationMode != nil {
			m, err := optionalMode(*in.ConsultationMode)
			if err != nil {
				return err
			}
			d.ConsultationMode = m
		}
		if in.Availability != nil {
			v, err := s.cleanText("availability", *in.Availability, maxTextLen)
			if err != nil {
				return err
			}
			d.Availability = v
		}
		return nil
	})
}

func (s *Service) SaveDoctorRecommended(ctx context.Context, userID string, in DoctorRecommended) (View, error) {
	return s.saveDoctor(ctx, userID, func(d *DoctorProfile) error {
		if in.Qualifications != nil {
			list, err := s.cleanList("qualifications", *in.Qualifications)
			if err != nil {
				return err
			}
			if len(list) > maxListLen {
				return errListLen
			}
			d.Qualifications = list
		}
		if in.ClinicName != nil {
			v, err := s.cleanText("clinicName", *in.ClinicName, maxTextLen)
			if err != nil {
				return err
			}
			d.ClinicName = v
		}
		return nil
	})
}

func (s *Service) SaveDoctorAdvanced(ctx context.Context, userID string, in DoctorAdvanced) (View, error) {
	return s.saveDoctor(ctx, userID, func(d *DoctorProfile) error {
		if in.LicenseDocument != nil {
			v, err := s.cleanText("licenseDocument", *in.LicenseDocument, maxTextLen)
			if err != nil {
				return err
			}
			d.LicenseDocument = v
		}
		if in.Bio != nil {
			v, err := s.cleanText("bio", *in.Bio, maxBioLen)
			if err != nil {
				return err
			}
			d.Bio = v
		}
		return nil
	})
}

func (s *Service) saveDoctor(ctx context.Context, userID string, apply func(*DoctorProfile) error) (View, error) {
	u, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if u.Role != users.RoleDoctor {
		return View{}, ErrWrongRole
	}

	d, err := s.loadDoctor(ctx, u.ID)
	if err != nil {
		return View{}, err
	}
	if err := apply(&d); err != nil {
		return View{}, err
	}
	d.UserID = u.ID
	d.UpdatedAt = s.now()

	if err := s.repo.SaveDoctor(ctx, d); err != nil {
		return View{}, err
	}

	stored, err := s.accounts.RaiseLevel(ctx, u.ID, DoctorLevel(d))
	if err != nil {
		return View{}, err
	}
	return View{UserID: u.ID, Role: u.Role, Level: stored.ProfileLevel, Doctor: &d}, nil
}

// -------------------------
// helpers
// -------------------------

func optionalMode(raw string) (ConsultationMode, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	m, ok := ParseConsultationMode(raw)
	if !ok {
		return "", errMode
	}
	return m, nil
}

func (s *Service) cleanText(field, raw string, max int) (string, error) {
	out := s.text.Clean(raw)
	if utf8.RuneCountInString(out) > max {
		return "", apperr.Validation(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return out, nil
}

// cleanList trims entries, drops blanks and case-insensitive duplicates.
func (s *Service) cleanList(field string, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		v, err := s.cleanText(field, raw, maxTextLen)
		if err != nil {
			return nil, err
		}
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
