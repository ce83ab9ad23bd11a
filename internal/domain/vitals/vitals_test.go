package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestValidate_RangesRejectRegardlessOfOtherFields(t *testing.T) {
	cases := []struct {
		name string
		in   Reading
		want error
	}{
		{"heart rate low", Reading{HeartRate: intp(29), OxygenSaturation: intp(98)}, ErrHeartRateRange},
		{"heart rate high", Reading{HeartRate: intp(201), Systolic: intp(120), Diastolic: intp(80)}, ErrHeartRateRange},
		{"oxygen low", Reading{OxygenSaturation: intp(69), HeartRate: intp(70)}, ErrOxygenRange},
		{"oxygen high", Reading{OxygenSaturation: intp(101)}, ErrOxygenRange},
		{"bp not positive", Reading{Systolic: intp(0), Diastolic: intp(80)}, ErrBloodPressure},
		{"bp inverted", Reading{Systolic: intp(70), Diastolic: intp(80)}, ErrBloodPressureOrder},
		{"sugar not positive", Reading{BloodSugar: floatp(-1)}, ErrBloodSugar},
		{"bounds inclusive", Reading{HeartRate: intp(30), OxygenSaturation: intp(70)}, nil},
		{"upper bounds inclusive", Reading{HeartRate: intp(200), OxygenSaturation: intp(100)}, nil},
		{"empty", Reading{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClassify(t *testing.T) {
	got := Classify(Reading{
		Systolic:         intp(145),
		Diastolic:        intp(85),
		BloodSugar:       floatp(65),
		HeartRate:        intp(72),
		OxygenSaturation: intp(93),
	})

	assert.Equal(t, LabelHigh, got.BloodPressure)
	assert.Equal(t, LabelLow, got.BloodSugar)
	assert.Equal(t, LabelNormal, got.HeartRate)
	assert.Equal(t, LabelLow, got.OxygenSaturation)
}

func TestClassify_SkipsHalfBloodPressure(t *testing.T) {
	got := Classify(Reading{Systolic: intp(120)})
	assert.Empty(t, got.BloodPressure)
}

func TestThresholds(t *testing.T) {
	assert.Equal(t, LabelHigh, BloodPressureLabel(120, 90))
	assert.Equal(t, LabelLow, BloodPressureLabel(89, 70))
	assert.Equal(t, LabelNormal, BloodPressureLabel(120, 80))
	assert.Equal(t, LabelHigh, BloodSugarLabel(126))
	assert.Equal(t, LabelNormal, BloodSugarLabel(70))
	assert.Equal(t, LabelHigh, HeartRateLabel(101))
	assert.Equal(t, LabelLow, HeartRateLabel(59))
	assert.Equal(t, LabelNormal, OxygenLabel(95))
}
