package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// ErrPatientIDRequired is returned when a record has no patient to belong to.
var ErrPatientIDRequired = errors.New("audit: patient id required")

// Sequence hands out record sequence numbers. Values must be strictly
// increasing across the whole process, not per day.
type Sequence interface {
	Next() int64
}

// Counter is a Sequence starting at 1.
type Counter struct {
	n atomic.Int64
}

// Next returns the next value.
func (c *Counter) Next() int64 { return c.n.Add(1) }

// Recorder assigns record IDs and appends records to the store.
type Recorder struct {
	mu    sync.Mutex
	store Store
	seq   Sequence
	now   func() time.Time
}

// NewRecorder wires a recorder. A nil seq uses a fresh Counter; a nil now
// uses time.Now.
func NewRecorder(store Store, seq Sequence, now func() time.Time) *Recorder {
	if seq == nil {
		seq = &Counter{}
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, seq: seq, now: now}
}

// FormatID builds the TR-YYYYMMDD-NNNN record identifier. The date is the
// UTC calendar day of at. The sequence is zero-padded to four digits and
// widens beyond 9999, so IDs do not sort as strings past that point: order
// records by Sequence, which is strictly increasing.
func FormatID(at time.Time, seq int64) string {
	return fmt.Sprintf("TR-%s-%04d", at.UTC().Format("20060102"), seq)
}

// Record appends a new immutable record for the assessment and returns a copy
// of it with the rendered ticket. The sequence draw and the append happen
// under one lock, so records for a patient are listed in sequence order.
// A failed append leaves a gap in the sequence.
func (r *Recorder) Record(ctx context.Context, patientID string, in esi.Input, res esi.Result, cl Checklist) (*Record, error) {
	if patientID == "" {
		return nil, ErrPatientIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	seq := r.seq.Next()
	rec := (&Record{
		ID:         FormatID(at, seq),
		Sequence:   seq,
		PatientID:  patientID,
		RecordedAt: at,
		Input:      in,
		Result:     res,
		Checklist:  cl,
	}).Clone()
	rec.Ticket = RenderTicket(rec)

	if err := r.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append record %s: %w", rec.ID, err)
	}
	return rec.Clone(), nil
}

// ListByPatient returns the patient's records oldest first.
func (r *Recorder) ListByPatient(ctx context.Context, patientID string) ([]*Record, error) {
	return r.store.ListByPatient(ctx, patientID)
}

// Get returns a single record by ID.
func (r *Recorder) Get(ctx context.Context, recordID string) (*Record, bool, error) {
	return r.store.Get(ctx, recordID)
}
