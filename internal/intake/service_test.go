package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/edtriage/internal/audit"
	"github.com/linnemanlabs/edtriage/internal/audit/memstore"
	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/queue"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// mockNotifier records admissions it was asked to page.
type mockNotifier struct {
	sent chan *Admission
	err  error
}

func newMockNotifier(err error) *mockNotifier {
	return &mockNotifier{sent: make(chan *Admission, 8), err: err}
}

func (m *mockNotifier) Send(_ context.Context, a *Admission) error {
	m.sent <- a
	return m.err
}

// failingRecorder wraps a recorder and fails every Record call.
type failingRecorder struct {
	Recorder
	err error
}

func (f failingRecorder) Record(context.Context, string, esi.Input, esi.Result, audit.Checklist) (*audit.Record, error) {
	return nil, f.err
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *Service
	queue    *queue.Queue
	notifier *mockNotifier
	clock    *clock
}

func newFixture(t *testing.T, notifier *mockNotifier, hooks Hooks, opts Options) *fixture {
	t.Helper()
	c := &clock{now: fixedNow}
	q := queue.New(nil)
	rec := audit.NewRecorder(memstore.New(), nil, c.Now)
	opts.Now = c.Now
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	svc := NewService(esi.NewClassifier(c.Now), q, rec, n, log.Nop(), hooks, opts)
	return &fixture{svc: svc, queue: q, notifier: notifier, clock: c}
}

func intp(v int) *int { return &v }

func chestPain(patientID string) *Request {
	return &Request{
		PatientID: patientID,
		Input: esi.Input{
			ChiefComplaint: "severe crushing chest pain radiating to left arm with diaphoresis",
			Vitals:         esi.VitalSigns{HeartRate: intp(110), SystolicBP: intp(85), SpO2: intp(91)},
			PainScore:      8,
			Arrival:        esi.ArrivalAmbulance,
		},
		Checklist: audit.Checklist{AllergiesVerified: true, RecordedBy: "triage-1"},
	}
}

func cardiacArrest(patientID string) *Request {
	return &Request{PatientID: patientID, Input: esi.Input{ChiefComplaint: "cardiac arrest", Arrival: esi.ArrivalAmbulance}}
}

func waitForPage(t *testing.T, n *mockNotifier) *Admission {
	t.Helper()
	select {
	case a := <-n.sent:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for page")
		return nil
	}
}

func TestAssess_RequiresPatientID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, Hooks{}, Options{})
	_, err := f.svc.Assess(context.Background(), &Request{Input: esi.Input{ChiefComplaint: "stroke"}})
	if !errors.Is(err, ErrPatientIDRequired) {
		t.Fatalf("err = %v, want ErrPatientIDRequired", err)
	}
	if f.queue.Len() != 0 {
		t.Error("rejected request must not be queued")
	}
}

func TestAssess_RecordsAndQueues(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, Hooks{}, Options{})
	ctx := context.Background()

	adm, err := f.svc.Assess(ctx, chestPain("P-1"))
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if adm.Result.Level != esi.Level2 {
		t.Errorf("Level = %v, want ESI-2", adm.Result.Level)
	}
	if adm.Record == nil || adm.Record.ID != "TR-20260314-0001" {
		t.Fatalf("Record = %+v", adm.Record)
	}
	if adm.Ticket == "" || adm.Ticket != adm.Record.Ticket {
		t.Error("expected ticket on admission")
	}
	if adm.Record.Checklist.RecordedBy != "triage-1" {
		t.Errorf("RecordedBy = %q", adm.Record.Checklist.RecordedBy)
	}
	if adm.Queue.Bypassed || adm.Queue.Position != 1 {
		t.Errorf("Queue = %+v, want position 1", adm.Queue)
	}

	recs, err := f.svc.Records(ctx, "P-1")
	if err != nil || len(recs) != 1 {
		t.Fatalf("Records = %v, %v", recs, err)
	}
	got, ok, err := f.svc.Record(ctx, adm.Record.ID)
	if err != nil || !ok || got.PatientID != "P-1" {
		t.Errorf("Record(%s) = %+v, %v, %v", adm.Record.ID, got, ok, err)
	}
}

func TestAssess_Level1Bypasses(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, Hooks{}, Options{})
	adm, err := f.svc.Assess(context.Background(), cardiacArrest("P-9"))
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !adm.Queue.Bypassed || adm.Queue.Area != queue.ResuscitationArea {
		t.Errorf("Queue = %+v, want resuscitation bypass", adm.Queue)
	}
	if len(f.svc.Snapshot(context.Background()).Entries) != 0 {
		t.Error("ESI-1 patient appeared in snapshot")
	}
}

func TestAssess_RecorderErrorStopsAdmission(t *testing.T) {
	t.Parallel()

	boom := errors.New("log unavailable")
	q := queue.New(nil)
	svc := NewService(esi.NewClassifier(nil), q,
		failingRecorder{Recorder: audit.NewRecorder(memstore.New(), nil, nil), err: boom},
		nil, log.Nop(), Hooks{}, Options{})

	_, err := svc.Assess(context.Background(), chestPain("P-1"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if q.Len() != 0 {
		t.Error("unrecorded assessment must not be queued")
	}
}

func TestAssess_PagesAtOrAboveNotifyLevel(t *testing.T) {
	t.Parallel()

	n := newMockNotifier(nil)
	f := newFixture(t, n, Hooks{}, Options{NotifyLevel: esi.Level2})
	ctx := context.Background()

	if _, err := f.svc.Assess(ctx, chestPain("P-1")); err != nil {
		t.Fatal(err)
	}
	page := waitForPage(t, n)
	if page.PatientID != "P-1" || page.Result.Level != esi.Level2 {
		t.Errorf("page = %+v", page)
	}

	// ESI-5 is below the threshold
	if _, err := f.svc.Assess(ctx, &Request{PatientID: "P-2", Input: esi.Input{ChiefComplaint: "repeat prescription"}}); err != nil {
		t.Fatal(err)
	}
	select {
	case a := <-n.sent:
		t.Errorf("unexpected page for %v", a.Result.Level)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAssess_DefaultNotifyLevelIsResuscitationOnly(t *testing.T) {
	t.Parallel()

	n := newMockNotifier(nil)
	f := newFixture(t, n, Hooks{}, Options{})
	ctx := context.Background()

	if _, err := f.svc.Assess(ctx, chestPain("P-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Assess(ctx, cardiacArrest("P-2")); err != nil {
		t.Fatal(err)
	}
	if page := waitForPage(t, n); page.PatientID != "P-2" {
		t.Errorf("paged %q, want only the ESI-1 patient", page.PatientID)
	}
}

func TestAssess_PageIsIndependentCopy(t *testing.T) {
	t.Parallel()

	n := newMockNotifier(nil)
	f := newFixture(t, n, Hooks{}, Options{})

	adm, err := f.svc.Assess(context.Background(), cardiacArrest("P-1"))
	if err != nil {
		t.Fatal(err)
	}
	page := waitForPage(t, n)
	if page == adm || page.Record == adm.Record {
		t.Fatal("notifier shares memory with the caller's admission")
	}
	adm.Result.ImmediateActions[0] = "tampered"
	if page.Result.ImmediateActions[0] == "tampered" {
		t.Error("caller mutation leaked into page")
	}
}

func TestAssess_NotifyFailureIsReported(t *testing.T) {
	t.Parallel()

	notified := make(chan error, 1)
	n := newMockNotifier(errors.New("webhook 500"))
	f := newFixture(t, n, Hooks{OnNotified: func(err error) { notified <- err }}, Options{})

	if _, err := f.svc.Assess(context.Background(), cardiacArrest("P-1")); err != nil {
		t.Fatalf("Assess must succeed even when paging fails: %v", err)
	}
	select {
	case err := <-notified:
		if err == nil {
			t.Error("expected notify error in hook")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notify hook")
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	var (
		mu         sync.Mutex
		dequeued   []esi.Level
		waits      []float64
		lastCounts map[esi.Level]int
	)
	hooks := Hooks{
		OnDequeue: func(level esi.Level, waited float64) {
			mu.Lock()
			defer mu.Unlock()
			dequeued = append(dequeued, level)
			waits = append(waits, waited)
		},
		OnDepth: func(c map[esi.Level]int) {
			mu.Lock()
			defer mu.Unlock()
			lastCounts = c
		},
	}
	f := newFixture(t, nil, hooks, Options{})
	ctx := context.Background()

	if _, ok := f.svc.Next(ctx); ok {
		t.Fatal("Next on empty queue returned ok")
	}

	if _, err := f.svc.Assess(ctx, &Request{PatientID: "P-low", Input: esi.Input{ChiefComplaint: "sprained ankle", PainScore: 3}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Assess(ctx, chestPain("P-high")); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(5 * time.Minute)

	e, ok := f.svc.Next(ctx)
	if !ok || e.PatientID != "P-high" {
		t.Fatalf("Next = %+v, %v; want P-high", e, ok)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(dequeued) != 1 || dequeued[0] != esi.Level2 {
		t.Errorf("dequeue hook levels = %v", dequeued)
	}
	if waits[0] != 300 {
		t.Errorf("waited = %v, want 300s", waits[0])
	}
	if lastCounts[esi.Level2] != 0 || lastCounts[esi.Level4] != 1 {
		t.Errorf("depth = %v", lastCounts)
	}
}

func TestAssess_CreatesSpans(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	f := newFixture(t, nil, Hooks{}, Options{})
	ctx := context.Background()
	if _, err := f.svc.Assess(ctx, chestPain("P-1")); err != nil {
		t.Fatal(err)
	}
	f.svc.Next(ctx)

	counts := make(map[string]int)
	var assess tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
		if s.Name == "intake.Assess" {
			assess = s
		}
	}
	if counts["intake.Assess"] != 1 || counts["intake.Next"] != 1 {
		t.Fatalf("span counts = %v", counts)
	}

	attrs := make(map[string]any)
	for _, a := range assess.Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	if v := attrs["edtriage.esi.level"]; v != int64(2) {
		t.Errorf("edtriage.esi.level = %v, want 2", v)
	}
	if v := attrs["edtriage.esi.rule"]; v != esi.RuleHighRisk {
		t.Errorf("edtriage.esi.rule = %v, want %s", v, esi.RuleHighRisk)
	}
	if v := attrs["edtriage.record.id"]; v != "TR-20260314-0001" {
		t.Errorf("edtriage.record.id = %v", v)
	}
	if _, ok := attrs["patient_id"]; ok {
		t.Error("patient identifiers must not be exported in spans")
	}
}

// stallingClock hands out strictly increasing times. The first read blocks
// until release is closed.
type stallingClock struct {
	mu      sync.Mutex
	last    time.Time
	reads   int
	stalled chan struct{}
	release chan struct{}
}

func newStallingClock() *stallingClock {
	return &stallingClock{last: fixedNow, stalled: make(chan struct{}), release: make(chan struct{})}
}

func (c *stallingClock) Now() time.Time {
	c.mu.Lock()
	c.reads++
	c.last = c.last.Add(time.Second)
	now, first := c.last, c.reads == 1
	c.mu.Unlock()

	if first {
		close(c.stalled)
		<-c.release
	}
	return now
}

func sprain(patientID string) *Request {
	return &Request{PatientID: patientID, Input: esi.Input{ChiefComplaint: "sprained ankle", PainScore: 3, Arrival: esi.ArrivalWalkIn}}
}

func assertArrivalOrder(t *testing.T, snap queue.Snapshot) {
	t.Helper()
	last := make(map[esi.Level]time.Time)
	for _, e := range snap.Entries {
		if prev, ok := last[e.Level]; ok && e.ArrivedAt.Before(prev) {
			t.Fatalf("position %d (%s, %v) arrived %v, before %v ahead of it", e.Position, e.PatientID, e.Level, e.ArrivedAt, prev)
		}
		last[e.Level] = e.ArrivedAt
	}
}

func TestAssess_ArrivalStampMatchesQueueOrder(t *testing.T) {
	t.Parallel()

	c := newStallingClock()
	svc := NewService(
		esi.NewClassifier(nil),
		queue.New(nil),
		audit.NewRecorder(memstore.New(), nil, nil),
		nil, log.Nop(), Hooks{}, Options{Now: c.Now},
	)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Assess(ctx, sprain("P-A"))
		errs <- err
	}()
	<-c.stalled

	bDone := make(chan struct{})
	go func() {
		defer close(bDone)
		_, err := svc.Assess(ctx, sprain("P-B"))
		errs <- err
	}()

	// give P-B every chance to overtake the stalled P-A
	select {
	case <-bDone:
	case <-time.After(50 * time.Millisecond):
	}
	close(c.release)

	for range 2 {
		if err := <-errs; err != nil {
			t.Fatalf("Assess: %v", err)
		}
	}

	snap := svc.Snapshot(ctx)
	if len(snap.Entries) != 2 {
		t.Fatalf("queue length = %d, want 2", len(snap.Entries))
	}
	if snap.Entries[0].PatientID != "P-A" {
		t.Errorf("head = %s, want P-A (arrived first)", snap.Entries[0].PatientID)
	}
	assertArrivalOrder(t, snap)
}

func TestAssess_ConcurrentAdmissionsKeepArrivalOrder(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		tick = fixedNow
	)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Millisecond)
		return tick
	}
	svc := NewService(
		esi.NewClassifier(nil),
		queue.New(nil),
		audit.NewRecorder(memstore.New(), nil, nil),
		nil, log.Nop(), Hooks{}, Options{Now: now},
	)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := sprain(fmt.Sprintf("P-%03d", i))
			if i%3 == 0 {
				req = chestPain(req.PatientID)
			}
			if _, err := svc.Assess(ctx, req); err != nil {
				t.Errorf("Assess: %v", err)
			}
		}()
	}
	wg.Wait()

	snap := svc.Snapshot(ctx)
	if len(snap.Entries) != n {
		t.Fatalf("queue length = %d, want %d", len(snap.Entries), n)
	}
	assertArrivalOrder(t, snap)
}
