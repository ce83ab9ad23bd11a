package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"health-record-portal/internal/domain/appointments"
)

const appointmentColumns = `id, patient_id, doctor_id, scheduled_at, duration_minutes, mode, reason, status, created_at, updated_at`

type AppointmentsRepo struct {
	db *sql.DB
}

func NewAppointmentsRepo(db *sql.DB) *AppointmentsRepo {
	return &AppointmentsRepo{db: db}
}

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		a.ID,
		a.PatientID,
		a.DoctorID,
		a.ScheduledAt,
		a.DurationMinutes,
		string(a.Mode),
		a.Reason,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err, "appointments_doctor_slot_key") {
		return appointments.ErrSlotTaken
	}
	return err
}

func (r *AppointmentsRepo) Get(ctx context.Context, id string) (appointments.Appointment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *AppointmentsRepo) List(ctx context.Context, f appointments.Filter) ([]appointments.Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		q += ` AND ` + cond + ` = $` + strconv.Itoa(len(args))
	}
	if f.PatientID != "" {
		add("patient_id", f.PatientID)
	}
	if f.DoctorID != "" {
		add("doctor_id", f.DoctorID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	q += ` ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]appointments.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transition only updates when the stored status still equals from.
func (r *AppointmentsRepo) Transition(ctx context.Context, id string, from, to appointments.Status, at time.Time) (appointments.Appointment, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns, id, string(from), string(to), at)

	a, err := scanAppointment(row)
	if errors.Is(err, appointments.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return appointments.Appointment{}, getErr
		}
		return appointments.Appointment{}, appointments.ErrStaleStatus
	}
	if isUniqueViolation(err, "appointments_doctor_slot_key") {
		return appointments.Appointment{}, appointments.ErrSlotTaken
	}
	return a, err
}

func scanAppointment(s scanner) (appointments.Appointment, error) {
	var (
		a            appointments.Appointment
		mode, status string
	)
	if err := s.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&mode,
		&a.Reason,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appointments.Appointment{}, appointments.ErrNotFound
		}
		return appointments.Appointment{}, err
	}
	a.Mode = appointments.Mode(mode)
	a.Status = appointments.Status(status)
	return a, nil
}
