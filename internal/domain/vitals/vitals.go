// Package vitals validates vital-sign readings and labels them for display.
package vitals

import "health-record-portal/internal/platform/apperr"

const (
	MinHeartRate = 30
	MaxHeartRate = 200
	MinOxygen    = 70
	MaxOxygen    = 100
)

var (
	ErrHeartRateRange     = apperr.Validation("heartRate must be between 30 and 200")
	ErrOxygenRange        = apperr.Validation("oxygenSaturation must be between 70 and 100")
	ErrBloodPressure      = apperr.Validation("blood pressure values must be positive")
	ErrBloodPressureOrder = apperr.Validation("systolic pressure must be above diastolic")
	ErrBloodSugar         = apperr.Validation("bloodSugar must be positive")
	ErrWeight             = apperr.Validation("weightKg must be positive")
)

// Label is the display classification of a single reading.
// @Enum low, normal, high
type Label string

const (
	LabelLow    Label = "low"
	LabelNormal Label = "normal"
	LabelHigh   Label = "high"
)

// Reading holds any subset of vitals. Nil means not measured.
type Reading struct {
	Systolic         *int
	Diastolic        *int
	BloodSugar       *float64
	HeartRate        *int
	OxygenSaturation *int
	WeightKg         *float64
}

func (r Reading) Empty() bool {
	return r.Systolic == nil && r.Diastolic == nil && r.BloodSugar == nil &&
		r.HeartRate == nil && r.OxygenSaturation == nil && r.WeightKg == nil
}

// Validate rejects out-of-range values independently of the other fields.
func Validate(r Reading) error {
	if r.HeartRate != nil && (*r.HeartRate < MinHeartRate || *r.HeartRate > MaxHeartRate) {
		return ErrHeartRateRange
	}
	if r.OxygenSaturation != nil && (*r.OxygenSaturation < MinOxygen || *r.OxygenSaturation > MaxOxygen) {
		return ErrOxygenRange
	}
	if (r.Systolic != nil && *r.Systolic <= 0) || (r.Diastolic != nil && *r.Diastolic <= 0) {
		return ErrBloodPressure
	}
	if r.Systolic != nil && r.Diastolic != nil && *r.Systolic <= *r.Diastolic {
		return ErrBloodPressureOrder
	}
	if r.BloodSugar != nil && *r.BloodSugar <= 0 {
		return ErrBloodSugar
	}
	if r.WeightKg != nil && *r.WeightKg <= 0 {
		return ErrWeight
	}
	return nil
}

// Labels classifies each measured vital; unmeasured ones stay empty.
type Labels struct {
	BloodPressure    Label `json:"bloodPressure,omitempty"`
	BloodSugar       Label `json:"bloodSugar,omitempty"`
	HeartRate        Label `json:"heartRate,omitempty"`
	OxygenSaturation Label `json:"oxygenSaturation,omitempty"`
}

func Classify(r Reading) Labels {
	var out Labels
	if r.Systolic != nil && r.Diastolic != nil {
		out.BloodPressure = BloodPressureLabel(*r.Systolic, *r.Diastolic)
	}
	if r.BloodSugar != nil {
		out.BloodSugar = BloodSugarLabel(*r.BloodSugar)
	}
	if r.HeartRate != nil {
		out.HeartRate = HeartRateLabel(*r.HeartRate)
	}
	if r.OxygenSaturation != nil {
		out.OxygenSaturation = OxygenLabel(*r.OxygenSaturation)
	}
	return out
}

func BloodPressureLabel(systolic, diastolic int) Label {
	switch {
	case systolic >= 140 || diastolic >= 90:
		return LabelHigh
	case systolic < 90 || diastolic < 60:
		return LabelLow
	default:
		return LabelNormal
	}
}

// BloodSugarLabel uses fasting mg/dL thresholds.
func BloodSugarLabel(mgdl float64) Label {
	switch {
	case mgdl >= 126:
		return LabelHigh
	case mgdl < 70:
		return LabelLow
	default:
		return LabelNormal
	}
}

func HeartRateLabel(bpm int) Label {
	switch {
	case bpm > 100:
		return LabelHigh
	case bpm < 60:
		return LabelLow
	default:
		return LabelNormal
	}
}

func OxygenLabel(pct int) Label {
	switch {
	case pct > 100:
		return LabelHigh
	case pct < 95:
		return LabelLow
	default:
		return LabelNormal
	}
}
