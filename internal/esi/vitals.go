package esi

import (
	"fmt"
	"math"
)

// VitalsAssessment is the outcome of banding each supplied vital sign.
// A parameter contributes at most one finding: critical if it is in the
// critical zone, otherwise danger if it is in the danger zone.
type VitalsAssessment struct {
	Critical []string
	Danger   []string
}

// TriggersLevel1 reports whether any vital sign is in its critical zone.
func (v VitalsAssessment) TriggersLevel1() bool { return len(v.Critical) > 0 }

// TriggersLevel2 reports whether any vital sign is in its danger zone.
func (v VitalsAssessment) TriggersLevel2() bool { return len(v.Danger) > 0 }

// Findings returns critical findings followed by danger findings.
func (v VitalsAssessment) Findings() []string {
	out := make([]string, 0, len(v.Critical)+len(v.Danger))
	out = append(out, v.Critical...)
	return append(out, v.Danger...)
}

// band is a two-zone threshold check for one parameter. critical and danger
// return a human-readable description of the violated bound, or "" when the
// value is outside that zone.
type band struct {
	name     string
	unit     string
	critical func(float64) string
	danger   func(float64) string
}

func below(limit float64) func(float64) string {
	return func(x float64) string {
		if x < limit {
			return fmt.Sprintf("<%g", limit)
		}
		return ""
	}
}

func outside(lo, hi float64) func(float64) string {
	return func(x float64) string {
		switch {
		case x < lo:
			return fmt.Sprintf("<%g", lo)
		case x > hi:
			return fmt.Sprintf(">%g", hi)
		}
		return ""
	}
}

var (
	heartRateBand = band{name: "Heart rate", unit: "bpm", critical: outside(30, 180), danger: outside(50, 120)}
	systolicBand  = band{name: "Systolic BP", unit: "mmHg", critical: below(60), danger: outside(90, 220)}
	respRateBand  = band{name: "Respiratory rate", unit: "/min", critical: outside(8, 36), danger: outside(10, 28)}
	spo2Band      = band{name: "SpO2", unit: "%", critical: below(85), danger: below(92)}
	gcsBand       = band{
		name: "GCS",
		critical: func(x float64) string {
			if x <= 8 {
				return "<=8"
			}
			return ""
		},
		danger: below(14),
	}
	temperatureBand = band{
		name: "Temperature",
		unit: "C",
		critical: func(x float64) string {
			switch {
			case x >= 41.5:
				return ">=41.5"
			case x < 34.0:
				return "<34"
			}
			return ""
		},
		danger: func(x float64) string {
			switch {
			case x >= 38.5:
				return ">=38.5"
			case x < 35.5:
				return "<35.5"
			}
			return ""
		},
	}
)

func (b band) apply(x float64, out *VitalsAssessment) {
	if bound := b.critical(x); bound != "" {
		out.Critical = append(out.Critical, b.finding(x, "critical zone", bound))
		return
	}
	if bound := b.danger(x); bound != "" {
		out.Danger = append(out.Danger, b.finding(x, "danger zone", bound))
	}
}

func (b band) finding(x float64, zone, bound string) string {
	value := fmt.Sprintf("%g", x)
	if b.unit != "" {
		value += " " + b.unit
	}
	return fmt.Sprintf("%s %s (%s %s)", b.name, value, zone, bound)
}

// EvaluateVitals bands every supplied vital sign. Missing fields are skipped.
// Physiologically impossible readings are treated as missing so that
// malformed data can never raise acuity.
func EvaluateVitals(v VitalSigns) VitalsAssessment {
	var out VitalsAssessment

	if v.HeartRate != nil && *v.HeartRate > 0 {
		heartRateBand.apply(float64(*v.HeartRate), &out)
	}
	if v.SystolicBP != nil && *v.SystolicBP > 0 {
		systolicBand.apply(float64(*v.SystolicBP), &out)
	}
	if v.RespiratoryRate != nil && *v.RespiratoryRate > 0 {
		respRateBand.apply(float64(*v.RespiratoryRate), &out)
	}
	if v.SpO2 != nil && *v.SpO2 > 0 && *v.SpO2 <= 100 {
		spo2Band.apply(float64(*v.SpO2), &out)
	}
	if v.GCS != nil && *v.GCS >= 3 && *v.GCS <= 15 {
		gcsBand.apply(float64(*v.GCS), &out)
	}
	if v.Temperature != nil && isPlausibleTemp(*v.Temperature) {
		temperatureBand.apply(*v.Temperature, &out)
	}

	return out
}

func isPlausibleTemp(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0) && t > 0
}
