package intakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/edtriage/internal/audit"
	"github.com/linnemanlabs/edtriage/internal/authmw"
	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/intake"
)

const maxComplaintLen = 1000

type assessmentRequest struct {
	PatientID      string               `json:"patient_id"`
	ChiefComplaint string               `json:"chief_complaint"`
	Vitals         esi.VitalSigns       `json:"vitals"`
	PainScore      int                  `json:"pain_score"`
	Arrival        esi.ArrivalMechanism `json:"arrival"`
	Checklist      audit.Checklist      `json:"checklist"`
}

type queueStatus struct {
	Bypassed             bool   `json:"bypassed"`
	EntryID              string `json:"entry_id,omitempty"`
	Position             int    `json:"position,omitempty"`
	AheadSameLevel       int    `json:"ahead_same_level"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	Area                 string `json:"area"`
}

type admissionResponse struct {
	PatientID string      `json:"patient_id"`
	RecordID  string      `json:"record_id"`
	Result    esi.Result  `json:"result"`
	Queue     queueStatus `json:"queue"`
	Ticket    string      `json:"ticket"`
}

type validationError struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// plausible range per vital sign, inclusive
type bounds struct{ lo, hi float64 }

var vitalBounds = map[string]bounds{
	"heart_rate":       {1, 300},
	"systolic_bp":      {1, 300},
	"diastolic_bp":     {1, 200},
	"respiratory_rate": {1, 80},
	"spo2":             {1, 100},
	"temperature":      {25, 45},
	"gcs":              {3, 15},
}

func (req *assessmentRequest) validate() error {
	var errs []error

	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.PatientID == "" {
		errs = append(errs, errors.New("patient_id is required"))
	}
	if len(req.ChiefComplaint) > maxComplaintLen {
		errs = append(errs, fmt.Errorf("chief_complaint exceeds %d bytes", maxComplaintLen))
	}
	if req.PainScore < 0 || req.PainScore > 10 {
		errs = append(errs, fmt.Errorf("pain_score %d must be 0..10", req.PainScore))
	}
	if !req.Arrival.Known() {
		errs = append(errs, fmt.Errorf("arrival %q is not a known mechanism", req.Arrival))
	}

	check := func(name string, v *float64) {
		if v == nil {
			return
		}
		b := vitalBounds[name]
		if math.IsNaN(*v) || *v < b.lo || *v > b.hi {
			errs = append(errs, fmt.Errorf("vitals.%s %g outside plausible range %g..%g", name, *v, b.lo, b.hi))
		}
	}
	asFloat := func(p *int) *float64 {
		if p == nil {
			return nil
		}
		f := float64(*p)
		return &f
	}
	v := req.Vitals
	check("heart_rate", asFloat(v.HeartRate))
	check("systolic_bp", asFloat(v.SystolicBP))
	check("diastolic_bp", asFloat(v.DiastolicBP))
	check("respiratory_rate", asFloat(v.RespiratoryRate))
	check("spo2", asFloat(v.SpO2))
	check("temperature", v.Temperature)
	check("gcs", asFloat(v.GCS))

	return errors.Join(errs...)
}

func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		details := strings.Split(err.Error(), "\n")
		writeJSON(w, http.StatusBadRequest, validationError{Error: "invalid assessment", Details: details})
		return
	}

	// the authenticated station is authoritative over any self-reported one
	if station, ok := authmw.StationFromContext(r.Context()); ok {
		req.Checklist.RecordedBy = station
	}

	adm, err := a.svc.Assess(r.Context(), &intake.Request{
		PatientID: req.PatientID,
		Input: esi.Input{
			ChiefComplaint: req.ChiefComplaint,
			Vitals:         req.Vitals,
			PainScore:      req.PainScore,
			Arrival:        req.Arrival,
		},
		Checklist: req.Checklist,
	})
	if errors.Is(err, intake.ErrPatientIDRequired) {
		http.Error(w, `{"error":"patient_id is required"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to assess patient")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("edtriage.record.id", adm.Record.ID),
		attribute.Int("edtriage.esi.level", int(adm.Result.Level)),
	)

	q := adm.Queue
	writeJSON(w, http.StatusCreated, admissionResponse{
		PatientID: adm.PatientID,
		RecordID:  adm.Record.ID,
		Result:    adm.Result,
		Queue: queueStatus{
			Bypassed:             q.Bypassed,
			EntryID:              q.Entry.ID,
			Position:             q.Position,
			AheadSameLevel:       q.AheadSameLevel,
			EstimatedWaitMinutes: int(q.EstimatedWait.Minutes()),
			Area:                 q.Area,
		},
		Ticket: adm.Ticket,
	})
}
