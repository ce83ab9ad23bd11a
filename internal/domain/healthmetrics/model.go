package healthmetrics

import (
	"time"

	"health-record-portal/internal/domain/vitals"
)

// Metric is one vitals reading logged by a patient.
type Metric struct {
	ID        string
	PatientID string

	Systolic         *int
	Diastolic        *int
	BloodSugar       *float64
	HeartRate        *int
	OxygenSaturation *int
	WeightKg         *float64

	RecordedAt time.Time
	CreatedAt  time.Time
}

func (m Metric) Reading() vitals.Reading {
	return vitals.Reading{
		Systolic:         m.Systolic,
		Diastolic:        m.Diastolic,
		BloodSugar:       m.BloodSugar,
		HeartRate:        m.HeartRate,
		OxygenSaturation: m.OxygenSaturation,
		WeightKg:         m.WeightKg,
	}
}
