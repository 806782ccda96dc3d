// Package intake is the business boundary of the triage desk: it classifies an
// assessment, writes it to the audit log, places the patient in the admission
// queue and pages the resuscitation team when needed.
package intake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/edtriage/internal/audit"
	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/queue"
)

var tracer = otel.Tracer("github.com/linnemanlabs/edtriage/internal/intake")

// ErrPatientIDRequired is returned by Assess when the request names no patient.
var ErrPatientIDRequired = errors.New("patient id required")

// Classifier assigns an ESI level to an assessment.
type Classifier interface {
	Classify(in esi.Input) esi.Result
}

// Queue is the admission waiting list.
type Queue interface {
	Enqueue(patientID string, level esi.Level, now time.Time) queue.EnqueueResult
	Dequeue() (queue.Entry, bool)
	Snapshot() queue.Snapshot
}

// Recorder is the append-only triage log.
type Recorder interface {
	Record(ctx context.Context, patientID string, in esi.Input, res esi.Result, cl audit.Checklist) (*audit.Record, error)
	ListByPatient(ctx context.Context, patientID string) ([]*audit.Record, error)
	Get(ctx context.Context, recordID string) (*audit.Record, bool, error)
}

// Notifier pages clinical staff about an admission.
type Notifier interface {
	Send(ctx context.Context, a *Admission) error
}

// Hooks are optional callbacks fired as patients move through intake. Nil
// fields are skipped.
type Hooks struct {
	OnAssess   func(level esi.Level, rule string)
	OnRecord   func()
	OnBypass   func()
	OnDepth    func(counts map[esi.Level]int)
	OnDequeue  func(level esi.Level, waitedSeconds float64)
	OnNotified func(err error)
}

// Request is one triage assessment submitted by a station.
type Request struct {
	PatientID string
	Input     esi.Input
	Checklist audit.Checklist
}

// Admission is the outcome of an assessment.
type Admission struct {
	PatientID string              `json:"patient_id"`
	Result    esi.Result          `json:"result"`
	Record    *audit.Record       `json:"record"`
	Ticket    string              `json:"ticket"`
	Queue     queue.EnqueueResult `json:"-"`
}

func (a *Admission) clone() *Admission {
	cp := *a
	cp.Record = a.Record.Clone()
	cp.Result.Rationale = slices.Clone(a.Result.Rationale)
	cp.Result.ImmediateActions = slices.Clone(a.Result.ImmediateActions)
	return &cp
}

// Options tune the service. The zero value pages only for ESI 1 and uses
// the wall clock.
type Options struct {
	// NotifyLevel is the least urgent level that still pages. Values outside
	// 1..5 mean ESI 1.
	NotifyLevel esi.Level
	Now         func() time.Time
}

// Service is the business boundary for intake operations.
type Service struct {
	classifier  Classifier
	queue       Queue
	recorder    Recorder
	notifier    Notifier
	logger      log.Logger
	hooks       Hooks
	notifyLevel esi.Level
	now         func() time.Time

	// admitMu holds the arrival clock read and the enqueue together so
	// same-level order always matches ArrivedAt.
	admitMu sync.Mutex
}

// NewService creates a new intake service. notifier may be nil.
func NewService(classifier Classifier, q Queue, recorder Recorder, notifier Notifier, logger log.Logger, hooks Hooks, opts Options) *Service {
	if !opts.NotifyLevel.Valid() {
		opts.NotifyLevel = esi.Level1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		classifier:  classifier,
		queue:       q,
		recorder:    recorder,
		notifier:    notifier,
		logger:      logger,
		hooks:       hooks,
		notifyLevel: opts.NotifyLevel,
		now:         opts.Now,
	}
}

// Assess classifies the request, records it and admits the patient.
func (s *Service) Assess(ctx context.Context, req *Request) (*Admission, error) {
	ctx, span := tracer.Start(ctx, "intake.Assess")
	defer span.End()

	if req.PatientID == "" {
		span.SetStatus(codes.Error, ErrPatientIDRequired.Error())
		return nil, ErrPatientIDRequired
	}

	res := s.classifier.Classify(req.Input)
	span.SetAttributes(
		attribute.Int("edtriage.esi.level", int(res.Level)),
		attribute.String("edtriage.esi.rule", res.Rule),
	)
	if s.hooks.OnAssess != nil {
		s.hooks.OnAssess(res.Level, res.Rule)
	}

	rec, err := s.recorder.Record(ctx, req.PatientID, req.Input, res, req.Checklist)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("record assessment: %w", err)
	}
	span.SetAttributes(attribute.String("edtriage.record.id", rec.ID))
	if s.hooks.OnRecord != nil {
		s.hooks.OnRecord()
	}

	qr := s.admit(req.PatientID, res.Level)
	span.SetAttributes(
		attribute.Bool("edtriage.queue.bypassed", qr.Bypassed),
		attribute.Int("edtriage.queue.position", qr.Position),
	)
	if qr.Bypassed && s.hooks.OnBypass != nil {
		s.hooks.OnBypass()
	}
	s.reportDepth()

	adm := &Admission{
		PatientID: req.PatientID,
		Result:    res,
		Record:    rec,
		Ticket:    rec.Ticket,
		Queue:     qr,
	}

	L := s.logger.With("record_id", rec.ID, "level", res.Level.String(), "rule", res.Rule)
	L.Info(ctx, "patient triaged",
		"area", qr.Area,
		"bypassed", qr.Bypassed,
		"position", qr.Position,
		"estimated_wait", qr.EstimatedWait,
		"replaced", qr.Replaced,
	)

	if s.notifier != nil && res.Level <= s.notifyLevel {
		// hand the notifier its own copy; the caller owns adm
		go s.notify(context.WithoutCancel(ctx), adm.clone())
	}

	return adm, nil
}

func (s *Service) admit(patientID string, level esi.Level) queue.EnqueueResult {
	s.admitMu.Lock()
	defer s.admitMu.Unlock()
	return s.queue.Enqueue(patientID, level, s.now())
}

func (s *Service) notify(ctx context.Context, adm *Admission) {
	err := s.notifier.Send(ctx, adm)
	if s.hooks.OnNotified != nil {
		s.hooks.OnNotified(err)
	}
	if err != nil {
		s.logger.Error(ctx, err, "admission page failed", "record_id", adm.Record.ID, "level", adm.Result.Level.String())
	}
}

// Next calls the next waiting patient. ok is false when nobody is waiting.
func (s *Service) Next(ctx context.Context) (queue.Entry, bool) {
	ctx, span := tracer.Start(ctx, "intake.Next")
	defer span.End()

	e, ok := s.queue.Dequeue()
	span.SetAttributes(attribute.Bool("edtriage.queue.empty", !ok))
	if !ok {
		return queue.Entry{}, false
	}

	waited := s.now().Sub(e.ArrivedAt)
	if waited < 0 {
		waited = 0
	}
	span.SetAttributes(
		attribute.Int("edtriage.esi.level", int(e.Level)),
		attribute.String("edtriage.queue.entry_id", e.ID),
	)
	if s.hooks.OnDequeue != nil {
		s.hooks.OnDequeue(e.Level, waited.Seconds())
	}
	s.reportDepth()

	s.logger.Info(ctx, "patient called", "entry_id", e.ID, "level", e.Level.String(), "area", e.Area, "waited", waited)
	return e, true
}

// Snapshot returns the current queue.
func (s *Service) Snapshot(_ context.Context) queue.Snapshot {
	return s.queue.Snapshot()
}

// Records returns the patient's triage log, oldest first.
func (s *Service) Records(ctx context.Context, patientID string) ([]*audit.Record, error) {
	ctx, span := tracer.Start(ctx, "intake.Records")
	defer span.End()

	recs, err := s.recorder.ListByPatient(ctx, patientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("edtriage.records.count", len(recs)))
	return recs, nil
}

// Record retrieves one triage record by ID.
func (s *Service) Record(ctx context.Context, recordID string) (*audit.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "intake.Record", trace.WithAttributes(
		attribute.String("edtriage.record.id", recordID),
	))
	defer span.End()

	rec, ok, err := s.recorder.Get(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rec, ok, err
}

func (s *Service) reportDepth() {
	if s.hooks.OnDepth == nil {
		return
	}
	s.hooks.OnDepth(s.queue.Snapshot().Counts)
}
