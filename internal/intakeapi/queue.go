package intakeapi

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/queue"
)

type entryResponse struct {
	EntryID              string    `json:"entry_id"`
	PatientID            string    `json:"patient_id"`
	Level                esi.Level `json:"level"`
	ArrivedAt            time.Time `json:"arrived_at"`
	Area                 string    `json:"area"`
	Position             int       `json:"position,omitempty"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
}

type snapshotResponse struct {
	Entries []entryResponse `json:"entries"`
	Counts  map[string]int  `json:"counts"`
	Total   int             `json:"total"`
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s := a.svc.Snapshot(r.Context())

	resp := snapshotResponse{
		Entries: make([]entryResponse, 0, len(s.Entries)),
		Counts:  make(map[string]int, len(s.Counts)),
		Total:   len(s.Entries),
	}
	for _, e := range s.Entries {
		resp.Entries = append(resp.Entries, entryResponse{
			EntryID:              e.ID,
			PatientID:            e.PatientID,
			Level:                e.Level,
			ArrivedAt:            e.ArrivedAt,
			Area:                 e.Area,
			Position:             e.Position,
			EstimatedWaitMinutes: int(e.EstimatedWait.Minutes()),
		})
	}
	for l, n := range s.Counts {
		resp.Counts[strconv.Itoa(int(l))] = n
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	e, ok := a.svc.Next(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("edtriage.queue.entry_id", e.ID))

	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func toEntryResponse(e queue.Entry) entryResponse {
	return entryResponse{
		EntryID:   e.ID,
		PatientID: e.PatientID,
		Level:     e.Level,
		ArrivedAt: e.ArrivedAt,
		Area:      e.Area,
	}
}
