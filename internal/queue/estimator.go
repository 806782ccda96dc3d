package queue

import (
	"time"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// WaitEstimator predicts how long a patient will wait to be seen.
type WaitEstimator interface {
	Estimate(level esi.Level, aheadSameLevel int) time.Duration
}

// LinearRate is a base wait plus a fixed delay per patient already waiting
// at the same level.
type LinearRate struct {
	Base       time.Duration
	PerPatient time.Duration
}

// LinearEstimator is a static wait table. It does not adapt to observed
// throughput.
type LinearEstimator map[esi.Level]LinearRate

// DefaultEstimator returns the standard department wait table.
func DefaultEstimator() LinearEstimator {
	return LinearEstimator{
		esi.Level2: {Base: 10 * time.Minute, PerPatient: 5 * time.Minute},
		esi.Level3: {Base: 30 * time.Minute, PerPatient: 15 * time.Minute},
		esi.Level4: {Base: 60 * time.Minute, PerPatient: 20 * time.Minute},
		esi.Level5: {Base: 120 * time.Minute, PerPatient: 25 * time.Minute},
	}
}

// Estimate returns Base + aheadSameLevel*PerPatient. Levels without an entry
// (including ESI 1) wait zero.
func (e LinearEstimator) Estimate(level esi.Level, aheadSameLevel int) time.Duration {
	r, ok := e[level]
	if !ok {
		return 0
	}
	if aheadSameLevel < 0 {
		aheadSameLevel = 0
	}
	return r.Base + time.Duration(aheadSameLevel)*r.PerPatient
}
