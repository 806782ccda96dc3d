// Package intakeapi exposes the intake service over HTTP for triage stations,
// bed management and audit consumers.
package intakeapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/edtriage/internal/audit"
	"github.com/linnemanlabs/edtriage/internal/intake"
	"github.com/linnemanlabs/edtriage/internal/queue"
)

// IntakeService defines the business operations intakeapi needs.
type IntakeService interface {
	Assess(ctx context.Context, req *intake.Request) (*intake.Admission, error)
	Next(ctx context.Context) (queue.Entry, bool)
	Snapshot(ctx context.Context) queue.Snapshot
	Records(ctx context.Context, patientID string) ([]*audit.Record, error)
	Record(ctx context.Context, recordID string) (*audit.Record, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    IntakeService
}

// New creates a new API handler.
func New(logger log.Logger, svc IntakeService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("intake service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. mw wraps every
// /api/v1 route, typically with station authentication.
func (a *API) RegisterRoutes(r chi.Router, mw ...func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw...)
		r.Post("/assessments", a.handleAssess)
		r.Get("/queue", a.handleSnapshot)
		r.Post("/queue/next", a.handleNext)
		r.Get("/patients/{id}/records", a.handlePatientRecords)
		r.Get("/records/{id}", a.handleGetRecord)
		r.Get("/records/{id}/ticket", a.handleGetTicket)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}
