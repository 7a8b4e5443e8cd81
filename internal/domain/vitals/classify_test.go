package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		vital Vital
		want  Severity
		count int
	}{
		{"empty reading", Vital{}, SeverityNormal, 0},
		{"normal", Vital{Systolic: intp(120), Diastolic: intp(80), Pulse: intp(72), Temperature: floatp(36.8), OxygenSaturation: intp(98)}, SeverityNormal, 0},
		{"systolic warning high", Vital{Systolic: intp(150)}, SeverityWarning, 1},
		{"systolic boundary is not warning", Vital{Systolic: intp(140)}, SeverityNormal, 0},
		{"systolic critical high", Vital{Systolic: intp(190)}, SeverityCritical, 1},
		{"systolic critical low", Vital{Systolic: intp(85)}, SeverityCritical, 1},
		{"systolic warning low", Vital{Systolic: intp(95)}, SeverityWarning, 1},
		{"diastolic critical", Vital{Diastolic: intp(125)}, SeverityCritical, 1},
		{"pulse warning", Vital{Pulse: intp(105)}, SeverityWarning, 1},
		{"pulse critical low", Vital{Pulse: intp(45)}, SeverityCritical, 1},
		{"fever warning", Vital{Temperature: floatp(38.5)}, SeverityWarning, 1},
		{"fever critical", Vital{Temperature: floatp(39.5)}, SeverityCritical, 1},
		{"hypothermia critical", Vital{Temperature: floatp(34.5)}, SeverityCritical, 1},
		{"spo2 warning", Vital{OxygenSaturation: intp(93)}, SeverityWarning, 1},
		{"spo2 critical", Vital{OxygenSaturation: intp(85)}, SeverityCritical, 1},
		{"worst wins", Vital{Systolic: intp(150), OxygenSaturation: intp(85)}, SeverityCritical, 2},
		{"weight and glucose are not graded", Vital{Weight: floatp(250), Glucose: intp(900)}, SeverityNormal, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(&tt.vital)
			assert.Equal(t, tt.want, got.Severity)
			assert.Len(t, got.Findings, tt.count)
			assert.Equal(t, tt.want == SeverityCritical, got.Critical())
		})
	}
}

// Moving a value further from the normal range never lowers its grade.
func TestClassify_MonotonicPerParameter(t *testing.T) {
	for _, b := range bands {
		t.Run(b.parameter, func(t *testing.T) {
			mid := 0.0
			switch {
			case b.warnLow != nil && b.warnHigh != nil:
				mid = (*b.warnLow + *b.warnHigh) / 2
			case b.warnLow != nil:
				mid = *b.warnLow + 1
			}

			prev := SeverityNormal
			for v := mid; v <= 400; v += 0.5 {
				sev := b.classify(v)
				assert.GreaterOrEqual(t, sev.rank(), prev.rank(), "upwards at %g", v)
				prev = sev
			}
			prev = SeverityNormal
			for v := mid; v >= 0; v -= 0.5 {
				sev := b.classify(v)
				assert.GreaterOrEqual(t, sev.rank(), prev.rank(), "downwards at %g", v)
				prev = sev
			}
		})
	}
}

func TestSeverity_Label(t *testing.T) {
	assert.Equal(t, "Normal", SeverityNormal.Label())
	assert.Equal(t, "Warnung", SeverityWarning.Label())
	assert.Equal(t, "Kritisch", SeverityCritical.Label())
}

func TestFinding_String(t *testing.T) {
	f := Finding{Parameter: "systolic", Value: 190, Severity: SeverityCritical}
	assert.Equal(t, "systolic 190 (Kritisch)", f.String())
}
