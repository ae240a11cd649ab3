package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/pedalcoach/internal/logging"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("trace_id", "abc"))
	weekCtx := logging.WithAttrs(ctx, slog.String("week_start", "2026-10-12"))
	userCtx := logging.WithAttrs(ctx, slog.Int("user_id", 7))

	logger.InfoContext(weekCtx, "plan")
	logger.InfoContext(userCtx, "goals")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "trace_id=abc") || !strings.Contains(lines[0], "week_start=2026-10-12") {
		t.Errorf("first line missing context attributes: %s", lines[0])
	}
	if strings.Contains(lines[1], "week_start") {
		t.Errorf("sibling context leaked attributes: %s", lines[1])
	}
	if !strings.Contains(lines[1], "user_id=7") {
		t.Errorf("second line missing user_id: %s", lines[1])
	}
}
