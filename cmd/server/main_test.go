package main

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	vc "github.com/linnemanlabs/edtriage/internal/cfg"
	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/intake"
)

func TestNotifySystemd_NoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error when NOTIFY_SOCKET is empty")
	}
	if !strings.Contains(err.Error(), "NOTIFY_SOCKET not set") {
		t.Errorf("error = %q, want substring %q", err, "NOTIFY_SOCKET not set")
	}
}

func TestNotifySystemd_InvalidPath(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "nonexistent.sock"))

	err := notifySystemd()
	if err == nil {
		t.Fatal("expected error for nonexistent socket")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("error = %q, want substring %q", err, "dial failed")
	}
}

func TestNotifySystemd_Success(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")

	// Create a real unixgram listener.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(context.Background(), "unixgram", sockPath)
	if err != nil {
		t.Fatalf("listen unixgram: %v", err)
	}
	defer func() { _ = conn.Close() }()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	if err := notifySystemd(); err != nil {
		t.Fatalf("notifySystemd() = %v, want nil", err)
	}

	buf := make([]byte, 256)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read from socket: %v", err)
	}

	got := string(buf[:n])
	if got != "READY=1" {
		t.Errorf("payload = %q, want %q", got, "READY=1")
	}
}

func TestNewIntake_WiresServiceAndStations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	appCfg := vc.Config{APITokens: "triage-1=tok-a, triage-2=tok-b", NotifyLevel: 2}

	svc, stations, err := newIntake(appCfg, log.Nop(), reg)
	if err != nil {
		t.Fatalf("newIntake: %v", err)
	}
	if len(stations) != 2 || stations["tok-a"] != "triage-1" || stations["tok-b"] != "triage-2" {
		t.Errorf("stations = %v", stations)
	}

	adm, err := svc.Assess(context.Background(), &intake.Request{
		PatientID: "P-1",
		Input:     esi.Input{ChiefComplaint: "sprained ankle", PainScore: 3, Arrival: esi.ArrivalWalkIn},
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if adm.Result.Level != esi.Level4 || adm.Queue.Position != 1 {
		t.Errorf("admission = %v at position %d, want ESI-4 at 1", adm.Result.Level, adm.Queue.Position)
	}
	if got := counterValue(t, reg, "edtriage_records_total"); got != 1 {
		t.Errorf("edtriage_records_total = %v, want 1", got)
	}
}

func TestNewIntake_RejectsMalformedTokens(t *testing.T) {
	t.Parallel()

	_, _, err := newIntake(vc.Config{APITokens: "triage-1"}, log.Nop(), prometheus.NewRegistry())
	if err == nil {
		t.Fatal("expected error for station entry without a token")
	}
	if !strings.Contains(err.Error(), "station tokens") {
		t.Errorf("error = %q, want substring %q", err, "station tokens")
	}
}

// counterValue reads a single-series counter from the registry.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) == 1 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s not registered", name)
	return 0
}
