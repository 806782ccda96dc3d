// Package esi implements Emergency Severity Index (v4) triage classification.
// Everything in this package is pure: no I/O, no shared mutable state, safe for
// concurrent use without synchronization.
//
// Range checking is the caller's job, and nothing here rejects input. Values
// that cannot be physiological are dropped silently and treated as not
// measured: heart rate, blood pressure or respiratory rate <= 0, SpO2 outside
// 1..100, GCS outside 3..15, and a temperature that is <= 0, NaN or infinite.
// A dropped reading can never raise acuity. Callers that need to report bad
// readings must validate before calling Classify.
package esi
