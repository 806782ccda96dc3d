// Package queue provides the ED admission waiting list: ordered by ESI level,
// first-in-first-out within a level, with ESI 1 patients bypassing the list.
package queue

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// ResuscitationArea is where ESI 1 patients go instead of the waiting list.
const ResuscitationArea = "Resuscitation Bay"

// Entry is one waiting patient. PatientID is a reference only; the queue owns
// no patient data.
type Entry struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Level     esi.Level `json:"esi_level"`
	ArrivedAt time.Time `json:"arrived_at"`
	Area      string    `json:"area"`
}

// EnqueueResult acknowledges an enqueue. For a bypass, Entry is zero apart
// from PatientID and Level, and Position is 0.
type EnqueueResult struct {
	Entry          Entry
	Bypassed       bool
	Replaced       bool
	Position       int
	AheadSameLevel int
	EstimatedWait  time.Duration
	Area           string
}

// SnapshotEntry is an entry with its current position and wait estimate.
type SnapshotEntry struct {
	Entry
	Position      int
	EstimatedWait time.Duration
}

// Snapshot is a point-in-time copy of the queue for dashboards and bed
// management. Counts always has keys for levels 2 through 5.
type Snapshot struct {
	Entries []SnapshotEntry
	Counts  map[esi.Level]int
}

// Queue is safe for concurrent use. A single mutex is held across each
// scan-then-insert so concurrent enqueues cannot reorder or lose entries.
type Queue struct {
	mu        sync.Mutex
	entries   []Entry
	estimator WaitEstimator
	newID     func() string
}

// New creates an empty queue. A nil estimator means DefaultEstimator.
func New(estimator WaitEstimator) *Queue {
	if estimator == nil {
		estimator = DefaultEstimator()
	}
	return &Queue{
		estimator: estimator,
		newID:     func() string { return ulid.Make().String() },
	}
}

// Enqueue admits a patient at the given level. ESI 1 is never stored.
// Otherwise the entry goes before the first entry with a strictly greater
// level, which keeps equal levels in arrival order. A level outside 1..5 is
// stored as ESI 5, so a malformed level never bypasses to resuscitation or
// jumps the queue. A patient already waiting is replaced,
// so a re-triage moves them rather than duplicating them.
func (q *Queue) Enqueue(patientID string, level esi.Level, now time.Time) EnqueueResult {
	level = clamp(level)

	q.mu.Lock()
	defer q.mu.Unlock()

	replaced := q.removeLocked(patientID)

	if level == esi.Level1 {
		return EnqueueResult{
			Entry:    Entry{PatientID: patientID, Level: level, ArrivedAt: now, Area: ResuscitationArea},
			Bypassed: true,
			Replaced: replaced,
			Area:     ResuscitationArea,
		}
	}

	idx := len(q.entries)
	ahead := 0
	for i, e := range q.entries {
		if e.Level > level {
			idx = i
			break
		}
		if e.Level == level {
			ahead++
		}
	}

	e := Entry{
		ID:        q.newID(),
		PatientID: patientID,
		Level:     level,
		ArrivedAt: now,
		Area:      esi.Metadata(level).Area,
	}
	q.entries = slices.Insert(q.entries, idx, e)

	return EnqueueResult{
		Entry:          e,
		Replaced:       replaced,
		Position:       idx + 1,
		AheadSameLevel: ahead,
		EstimatedWait:  q.estimator.Estimate(level, ahead),
		Area:           e.Area,
	}
}

// Dequeue removes and returns the head of the queue. Calling a patient
// removes them outright. ok is false when the queue is empty.
func (q *Queue) Dequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}
	head := q.entries[0]
	q.entries = slices.Delete(q.entries, 0, 1)
	return head, true
}

// Position returns 1 + the number of entries ahead of the patient.
func (q *Queue) Position(patientID string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.PatientID == patientID {
			return i + 1, true
		}
	}
	return 0, false
}

// Len returns the number of waiting patients.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot copies the queue in order.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{
		Entries: make([]SnapshotEntry, 0, len(q.entries)),
		Counts: map[esi.Level]int{
			esi.Level2: 0,
			esi.Level3: 0,
			esi.Level4: 0,
			esi.Level5: 0,
		},
	}
	for i, e := range q.entries {
		ahead := s.Counts[e.Level]
		s.Entries = append(s.Entries, SnapshotEntry{
			Entry:         e,
			Position:      i + 1,
			EstimatedWait: q.estimator.Estimate(e.Level, ahead),
		})
		s.Counts[e.Level]++
	}
	return s
}

func (q *Queue) removeLocked(patientID string) bool {
	i := slices.IndexFunc(q.entries, func(e Entry) bool { return e.PatientID == patientID })
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

func clamp(l esi.Level) esi.Level {
	if !l.Valid() {
		return esi.Level5
	}
	return l
}
