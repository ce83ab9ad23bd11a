package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"health-record-portal/internal/domain/profiles"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

const patientColumns = `user_id, age, gender, primary_problem, symptoms, consultation_preference,
	medical_history, current_medications, emergency_contact_name, emergency_contact_phone,
	bp_systolic, bp_diastolic, blood_sugar, heart_rate, oxygen_saturation, updated_at`

const doctorColumns = `user_id, specialization, experience_years, conditions_treated, consultation_mode,
	availability, qualifications, clinic_name, license_document, bio, updated_at`

func (r *ProfilesRepo) GetPatient(ctx context.Context, userID string) (profiles.PatientProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patient_profiles WHERE user_id = $1`, userID)

	var (
		p                       profiles.PatientProfile
		pref                    string
		symptoms, history, meds []byte
	)
	if err := row.Scan(
		&p.UserID,
		&p.Age,
		&p.Gender,
		&p.PrimaryProblem,
		&symptoms,
		&pref,
		&history,
		&meds,
		&p.EmergencyContactName,
		&p.EmergencyContactPhone,
		&p.BloodPressureSystolic,
		&p.BloodPressureDiastolic,
		&p.BloodSugar,
		&p.HeartRate,
		&p.OxygenSaturation,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.PatientProfile{}, profiles.ErrNotFound
		}
		return profiles.PatientProfile{}, err
	}
	p.ConsultationPreference = profiles.ConsultationMode(pref)

	var err error
	if p.Symptoms, err = decodeList(symptoms); err != nil {
		return profiles.PatientProfile{}, err
	}
	if p.MedicalHistory, err = decodeList(history); err != nil {
		return profiles.PatientProfile{}, err
	}
	if p.CurrentMedications, err = decodeList(meds); err != nil {
		return profiles.PatientProfile{}, err
	}
	return p, nil
}

func (r *ProfilesRepo) SavePatient(ctx context.Context, p profiles.PatientProfile) error {
	symptoms, err := encodeList(p.Symptoms)
	if err != nil {
		return err
	}
	history, err := encodeList(p.MedicalHistory)
	if err != nil {
		return err
	}
	meds, err := encodeList(p.CurrentMedications)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO patient_profiles (`+patientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (user_id) DO UPDATE
		SET
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			primary_problem = EXCLUDED.primary_problem,
			symptoms = EXCLUDED.symptoms,
			consultation_preference = EXCLUDED.consultation_preference,
			medical_history = EXCLUDED.medical_history,
			current_medications = EXCLUDED.current_medications,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_phone = EXCLUDED.emergency_contact_phone,
			bp_systolic = EXCLUDED.bp_systolic,
			bp_diastolic = EXCLUDED.bp_diastolic,
			blood_sugar = EXCLUDED.blood_sugar,
			heart_rate = EXCLUDED.heart_rate,
			oxygen_saturation = EXCLUDED.oxygen_saturation,
			updated_at = EXCLUDED.updated_at
	`,
		p.UserID,
		p.Age,
		p.Gender,
		p.PrimaryProblem,
		string(symptoms),
		string(p.ConsultationPreference),
		string(history),
		string(meds),
		p.EmergencyContactName,
		p.EmergencyContactPhone,
		p.BloodPressureSystolic,
		p.BloodPressureDiastolic,
		p.BloodSugar,
		p.HeartRate,
		p.OxygenSaturation,
		p.UpdatedAt,
	)
	return err
}

func (r *ProfilesRepo) GetDoctor(ctx context.Context, userID string) (profiles.DoctorProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+doctorColumns+` FROM doctor_profiles WHERE user_id = $1`, userID)
	d, err := scanDoctor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profiles.DoctorProfile{}, profiles.ErrNotFound
	}
	return d, err
}

func (r *ProfilesRepo) SaveDoctor(ctx context.Context, d profiles.DoctorProfile) error {
	conditions, err := encodeList(d.ConditionsTreated)
	if err != nil {
		return err
	}
	quals, err := encodeList(d.Qualifications)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO doctor_profiles (`+doctorColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (user_id) DO UPDATE
		SET
			specialization = EXCLUDED.specialization,
			experience_years = EXCLUDED.experience_years,
			conditions_treated = EXCLUDED.conditions_treated,
			consultation_mode = EXCLUDED.consultation_mode,
			availability = EXCLUDED.availability,
			qualifications = EXCLUDED.qualifications,
			clinic_name = EXCLUDED.clinic_name,
			license_document = EXCLUDED.license_document,
			bio = EXCLUDED.bio,
			updated_at = EXCLUDED.updated_at
	`,
		d.UserID,
		d.Specialization,
		d.ExperienceYears,
		string(conditions),
		string(d.ConsultationMode),
		d.Availability,
		string(quals),
		d.ClinicName,
		d.LicenseDocument,
		d.Bio,
		d.UpdatedAt,
	)
	return err
}

// ListDoctors pushes specialization and mode into SQL; free text stays in the service.
func (r *ProfilesRepo) ListDoctors(ctx context.Context, f profiles.DoctorFilter) ([]profiles.DoctorProfile, error) {
	q := `SELECT ` + doctorColumns + ` FROM doctor_profiles WHERE 1=1`
	args := []any{}

	if s := strings.TrimSpace(f.Specialization); s != "" {
		args = append(args, strings.ToLower(s))
		q += ` AND lower(specialization) = $` + strconv.Itoa(len(args))
	}
	if f.Mode != "" {
		args = append(args, string(f.Mode))
		q += ` AND consultation_mode IN ($` + strconv.Itoa(len(args)) + `, 'BOTH')`
	}
	q += ` ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profiles.DoctorProfile, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDoctor(s scanner) (profiles.DoctorProfile, error) {
	var (
		d                 profiles.DoctorProfile
		mode              string
		conditions, quals []byte
	)
	if err := s.Scan(
		&d.UserID,
		&d.Specialization,
		&d.ExperienceYears,
		&conditions,
		&mode,
		&d.Availability,
		&quals,
		&d.ClinicName,
		&d.LicenseDocument,
		&d.Bio,
		&d.UpdatedAt,
	); err != nil {
		return profiles.DoctorProfile{}, err
	}
	d.ConsultationMode = profiles.ConsultationMode(mode)

	var err error
	if d.ConditionsTreated, err = decodeList(conditions); err != nil {
		return profiles.DoctorProfile{}, err
	}
	if d.Qualifications, err = decodeList(quals); err != nil {
		return profiles.DoctorProfile{}, err
	}
	return d, nil
}
