package main

import (
	"testing"
)

func Test_application_healthy(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startTestServer(t)
		health struct {
			Status string `json:"status"`
			Schema string `json:"schema"`
		}
	)

	if err := server.Client().AsUser(0).GetJSON(ctx, "/api/healthy", &health); err != nil {
		t.Fatalf("Failed to get health: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Schema != server.Schema() {
		t.Errorf("schema = %q, want %q", health.Schema, server.Schema())
	}
	migrations, err := server.QueryInt(ctx, "SELECT COUNT(*) FROM schema_migrations")
	if err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if migrations != 1 {
		t.Errorf("migrations = %d, want 1", migrations)
	}
}
