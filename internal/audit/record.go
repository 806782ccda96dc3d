// Package audit keeps the append-only triage log: one immutable record per
// assessment, addressed by a TR-YYYYMMDD-NNNN identifier.
package audit

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// ErrDuplicateRecord is returned by a Store asked to append a record ID it
// already holds.
var ErrDuplicateRecord = errors.New("audit: duplicate record id")

// Checklist is the nurse-confirmed part of an assessment.
type Checklist struct {
	AllergiesVerified bool   `json:"allergies_verified"`
	WristbandApplied  bool   `json:"wristband_applied"`
	Notes             string `json:"notes,omitempty"`
	RecordedBy        string `json:"recorded_by,omitempty"`
}

// Record is one entry in a patient's triage log.
type Record struct {
	ID         string     `json:"record_id"`
	Sequence   int64      `json:"sequence"`
	PatientID  string     `json:"patient_id"`
	RecordedAt time.Time  `json:"recorded_at"`
	Input      esi.Input  `json:"input"`
	Result     esi.Result `json:"result"`
	Checklist  Checklist  `json:"checklist"`
	Ticket     string     `json:"-"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Input.Vitals = cloneVitals(r.Input.Vitals)
	cp.Result.Rationale = slices.Clone(r.Result.Rationale)
	cp.Result.ImmediateActions = slices.Clone(r.Result.ImmediateActions)
	cp.Result.ResourcesExpected = clonePtr(r.Result.ResourcesExpected)
	return &cp
}

func cloneVitals(v esi.VitalSigns) esi.VitalSigns {
	return esi.VitalSigns{
		HeartRate:       clonePtr(v.HeartRate),
		SystolicBP:      clonePtr(v.SystolicBP),
		DiastolicBP:     clonePtr(v.DiastolicBP),
		RespiratoryRate: clonePtr(v.RespiratoryRate),
		SpO2:            clonePtr(v.SpO2),
		Temperature:     clonePtr(v.Temperature),
		GCS:             clonePtr(v.GCS),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store persists records. It has no update or delete; a correction is a new
// record.
type Store interface {
	Append(ctx context.Context, r *Record) error
	ListByPatient(ctx context.Context, patientID string) ([]*Record, error)
	Get(ctx context.Context, recordID string) (*Record, bool, error)
}
