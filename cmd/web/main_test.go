package main

import (
	"testing"

	"github.com/myrjola/pedalcoach/internal/e2etest"
	"github.com/myrjola/pedalcoach/internal/testhelpers"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "PEDALCOACH_SQLITE_URL":
		return ":memory:", true
	case "PEDALCOACH_ADDR":
		return "localhost:0", true
	default:
		return "", false
	}
}

func startTestServer(t *testing.T) *e2etest.Server {
	t.Helper()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server
}
