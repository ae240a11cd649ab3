package flightrecorder_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/pedalcoach/internal/flightrecorder"
	"github.com/myrjola/pedalcoach/internal/testhelpers"
)

func newService(t *testing.T, cooldown time.Duration) (*flightrecorder.Service, string) {
	t.Helper()
	traceDir := t.TempDir()
	service, err := flightrecorder.New(flightrecorder.Config{
		Logger:          testhelpers.Logger(t),
		MinAge:          0,
		MaxBytes:        0,
		Cooldown:        cooldown,
		TracesDirectory: traceDir,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err = service.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { service.Stop(t.Context()) })
	return service, traceDir
}

func TestNew_requiresDirectory(t *testing.T) {
	_, err := flightrecorder.New(flightrecorder.Config{
		Logger:          testhelpers.Logger(t),
		MinAge:          0,
		MaxBytes:        0,
		Cooldown:        0,
		TracesDirectory: "",
	})
	if err == nil {
		t.Error("New() without traces directory succeeded")
	}
}

func TestService_Capture(t *testing.T) {
	service, traceDir := newService(t, 0)

	path := service.Capture(t.Context(), "timeout", "POST /api/weekly-plan")
	if path == "" {
		t.Fatal("Capture() wrote no trace")
	}

	entries, err := os.ReadDir(traceDir)
	if err != nil {
		t.Fatalf("failed to read trace directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d trace files, want 1", len(entries))
	}
	filename := entries[0].Name()
	if !strings.HasPrefix(filename, "timeout-post_api_weekly-plan-") || !strings.HasSuffix(filename, ".trace") {
		t.Errorf("unexpected trace filename %s", filename)
	}
}

func TestService_CooldownPreventsCapture(t *testing.T) {
	service, traceDir := newService(t, time.Hour)

	if service.Capture(t.Context(), "slow", "GET /api/goals") == "" {
		t.Fatal("first Capture() wrote no trace")
	}
	if path := service.Capture(t.Context(), "slow", "GET /api/goals"); path != "" {
		t.Errorf("second Capture() wrote %s during cooldown", path)
	}

	entries, err := os.ReadDir(traceDir)
	if err != nil {
		t.Fatalf("failed to read trace directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d trace files, want 1", len(entries))
	}
}
