package vitals

import "fmt"

// Severity orders normal < warning < critical.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	}
	return 0
}

// Label returns the German display label.
func (s Severity) Label() string {
	switch s {
	case SeverityCritical:
		return "Kritisch"
	case SeverityWarning:
		return "Warnung"
	}
	return "Normal"
}

// Finding is one measurement outside the normal band.
type Finding struct {
	Parameter string   `json:"parameter"`
	Value     float64  `json:"value"`
	Severity  Severity `json:"severity"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %g (%s)", f.Parameter, f.Value, f.Label())
}

func (f Finding) Label() string { return f.Severity.Label() }

type Classification struct {
	Severity Severity  `json:"severity"`
	Findings []Finding `json:"findings"`
}

func (c Classification) Critical() bool { return c.Severity == SeverityCritical }

// band holds the limits for one parameter. A nil bound is not checked.
// Values strictly above a high bound or strictly below a low bound match.
type band struct {
	parameter         string
	critHigh, critLow *float64
	warnHigh, warnLow *float64
}

func lim(v float64) *float64 { return &v }

var bands = []band{
	{parameter: "systolic", critHigh: lim(180), critLow: lim(90), warnHigh: lim(140), warnLow: lim(100)},
	{parameter: "diastolic", critHigh: lim(120), critLow: lim(60), warnHigh: lim(90), warnLow: lim(65)},
	{parameter: "pulse", critHigh: lim(120), critLow: lim(50), warnHigh: lim(100), warnLow: lim(60)},
	{parameter: "temperature", critHigh: lim(39.0), critLow: lim(35.0), warnHigh: lim(38.0), warnLow: lim(36.0)},
	{parameter: "oxygen_saturation", critLow: lim(90), warnLow: lim(95)},
}

func (b band) classify(v float64) Severity {
	if (b.critHigh != nil && v > *b.critHigh) || (b.critLow != nil && v < *b.critLow) {
		return SeverityCritical
	}
	if (b.warnHigh != nil && v > *b.warnHigh) || (b.warnLow != nil && v < *b.warnLow) {
		return SeverityWarning
	}
	return SeverityNormal
}

func (v *Vital) measurements() map[string]*float64 {
	return map[string]*float64{
		"systolic":          intPtrToFloat(v.Systolic),
		"diastolic":         intPtrToFloat(v.Diastolic),
		"pulse":             intPtrToFloat(v.Pulse),
		"temperature":       v.Temperature,
		"oxygen_saturation": intPtrToFloat(v.OxygenSaturation),
	}
}

func intPtrToFloat(p *int) *float64 {
	if p == nil {
		return nil
	}
	x := float64(*p)
	return &x
}

// Classify grades every present measurement and returns the worst grade.
// Weight and glucose are not graded.
func Classify(v *Vital) Classification {
	out := Classification{Severity: SeverityNormal, Findings: []Finding{}}
	values := v.measurements()
	for _, b := range bands {
		val := values[b.parameter]
		if val == nil {
			continue
		}
		sev := b.classify(*val)
		if sev == SeverityNormal {
			continue
		}
		out.Findings = append(out.Findings, Finding{Parameter: b.parameter, Value: *val, Severity: sev})
		if sev.rank() > out.Severity.rank() {
			out.Severity = sev
		}
	}
	return out
}
