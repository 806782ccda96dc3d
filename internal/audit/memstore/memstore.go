// Package memstore provides an in-memory implementation of audit.Store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/edtriage/internal/audit"
)

// Store holds triage records in memory for the life of the process.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*audit.Record // record ID -> record
	byPatient map[string][]string      // patient ID -> record IDs, append order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records:   make(map[string]*audit.Record),
		byPatient: make(map[string][]string),
	}
}

// Append stores a copy of the record at the end of its patient's log.
func (s *Store) Append(_ context.Context, r *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("%w: %s", audit.ErrDuplicateRecord, r.ID)
	}
	s.records[r.ID] = r.Clone()
	s.byPatient[r.PatientID] = append(s.byPatient[r.PatientID], r.ID)
	return nil
}

// ListByPatient returns copies of the patient's records in append order.
// An unknown patient yields an empty slice.
func (s *Store) ListByPatient(_ context.Context, patientID string) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPatient[patientID]
	out := make([]*audit.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// Get retrieves a record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, recordID string) (*audit.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// Len returns the total number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
