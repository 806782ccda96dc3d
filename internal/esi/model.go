package esi

import (
	"fmt"
	"time"
)

// Level is an ESI acuity level, 1 being the most urgent.
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
	Level4
	Level5
)

// Valid reports whether l is one of the five ESI levels.
func (l Level) Valid() bool { return l >= Level1 && l <= Level5 }

func (l Level) String() string { return fmt.Sprintf("ESI-%d", int(l)) }

// ArrivalMechanism is how the patient reached the department.
type ArrivalMechanism string

const (
	ArrivalWalkIn     ArrivalMechanism = "walk-in"
	ArrivalAmbulance  ArrivalMechanism = "ambulance"
	ArrivalWheelchair ArrivalMechanism = "wheelchair"
	ArrivalStretcher  ArrivalMechanism = "stretcher"
	ArrivalPolice     ArrivalMechanism = "police"
	ArrivalGPReferral ArrivalMechanism = "gp-referral"
)

// Known reports whether a is one of the recognised arrival mechanisms.
func (a ArrivalMechanism) Known() bool {
	switch a {
	case ArrivalWalkIn, ArrivalAmbulance, ArrivalWheelchair, ArrivalStretcher, ArrivalPolice, ArrivalGPReferral:
		return true
	}
	return false
}

// VitalSigns holds independently optional vital-sign readings. A nil field
// was not measured and never contributes to escalation.
type VitalSigns struct {
	HeartRate       *int     `json:"heart_rate,omitempty"`
	SystolicBP      *int     `json:"systolic_bp,omitempty"`
	DiastolicBP     *int     `json:"diastolic_bp,omitempty"`
	RespiratoryRate *int     `json:"respiratory_rate,omitempty"`
	SpO2            *int     `json:"spo2,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"` // degrees Celsius
	GCS             *int     `json:"gcs,omitempty"`
}

// Input is a structured triage assessment as supplied by the intake layer.
// Range checks (pain 0..10, plausible vitals) are the caller's job.
type Input struct {
	ChiefComplaint string           `json:"chief_complaint"`
	Vitals         VitalSigns       `json:"vitals"`
	PainScore      int              `json:"pain_score"`
	Arrival        ArrivalMechanism `json:"arrival"`
}

// Result is a finalized ESI classification.
type Result struct {
	Level               Level     `json:"level"`
	Label               string    `json:"label"`
	Colour              string    `json:"colour"`
	TargetPhysicianTime string    `json:"target_physician_time"`
	Area                string    `json:"area"`
	Rationale           []string  `json:"rationale"`
	ImmediateActions    []string  `json:"immediate_actions"`
	ResourcesExpected   *int      `json:"resources_expected,omitempty"`
	Rule                string    `json:"rule"`
	ComputedAt          time.Time `json:"computed_at"`
}

// LevelInfo is the static presentation and workflow data for a level.
type LevelInfo struct {
	Label               string
	Colour              string
	TargetPhysicianTime string
	Area                string
	Actions             []string
}

var levelInfo = map[Level]LevelInfo{
	Level1: {
		Label:               "IMMEDIATE",
		Colour:              "Red",
		TargetPhysicianTime: "<1 min",
		Area:                "Resuscitation Bay",
		Actions: []string{
			"Activate resuscitation team",
			"Primary survey (ABCDE)",
			"Attach continuous cardiac, SpO2 and BP monitoring",
			"Establish 2x large-bore IV access",
			"Notify ED physician STAT",
		},
	},
	Level2: {
		Label:               "EMERGENT",
		Colour:              "Orange",
		TargetPhysicianTime: "<10 min",
		Area:                "Acute Treatment Area",
		Actions: []string{
			"Move to acute treatment area",
			"Continuous cardiac and SpO2 monitoring",
			"Establish IV access",
			"12-lead ECG within 10 min if cardiac symptoms suspected",
			"Physician assessment within 10 min",
		},
	},
	Level3: {
		Label:               "URGENT",
		Colour:              "Yellow",
		TargetPhysicianTime: "<30 min",
		Area:                "Acute Care",
		Actions: []string{
			"Full set of vitals on arrival and every 30 min",
			"Order initial labs and imaging per protocol",
			"Analgesia per nurse-initiated protocol",
			"Re-triage if condition changes",
		},
	},
	Level4: {
		Label:               "LESS URGENT",
		Colour:              "Green",
		TargetPhysicianTime: "<60 min",
		Area:                "Fast Track",
		Actions: []string{
			"Vitals on arrival and every 60 min",
			"Prepare single resource (x-ray, sutures or urinalysis)",
			"Re-triage if condition changes",
		},
	},
	Level5: {
		Label:               "NON-URGENT",
		Colour:              "Blue",
		TargetPhysicianTime: "<120 min",
		Area:                "Fast Track",
		Actions: []string{
			"Vitals on arrival",
			"Advise on expected wait and re-triage triggers",
		},
	},
}

// Metadata returns the static lookup for l. Out-of-range levels get the
// ESI-5 entry. The returned Actions slice is a copy.
func Metadata(l Level) LevelInfo {
	info, ok := levelInfo[l]
	if !ok {
		info = levelInfo[Level5]
	}
	info.Actions = append([]string(nil), info.Actions...)
	return info
}
