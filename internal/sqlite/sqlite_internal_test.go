package sqlite

import (
	"strings"
	"testing"

	"github.com/myrjola/pedalcoach/internal/testhelpers"
)

func TestDataSourceNames(t *testing.T) {
	t.Parallel()

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		readWrite, read := dataSourceNames("/data/pedalcoach.sqlite3")
		if !strings.HasPrefix(readWrite, "file:/data/pedalcoach.sqlite3?mode=rwc&_txlock=immediate&") {
			t.Errorf("read-write DSN = %q", readWrite)
		}
		if !strings.HasPrefix(read, "file:/data/pedalcoach.sqlite3?mode=ro&_txlock=deferred&_query_only=true&") {
			t.Errorf("read DSN = %q", read)
		}
		if strings.Contains(readWrite, "cache=shared") {
			t.Errorf("file database must not use shared cache: %q", readWrite)
		}
		if !strings.Contains(readWrite, "_busy_timeout=5000") {
			t.Errorf("read-write DSN %q lacks busy timeout", readWrite)
		}
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		readWrite, read := dataSourceNames(":memory:")
		if strings.Contains(readWrite, ":memory:") {
			t.Errorf("in-memory database must get a unique name: %q", readWrite)
		}
		for _, dsn := range []string{readWrite, read} {
			if !strings.Contains(dsn, "mode=memory&cache=shared") {
				t.Errorf("DSN %q lacks shared in-memory mode", dsn)
			}
		}
		name := func(dsn string) string { return strings.SplitN(dsn, "?", 2)[0] } //nolint:mnd // name and query.
		if name(readWrite) != name(read) {
			t.Errorf("pools point at different databases: %q and %q", readWrite, read)
		}
		other, _ := dataSourceNames(":memory:")
		if name(other) == name(readWrite) {
			t.Errorf("two in-memory databases share name %q", name(other))
		}
	})
}

func TestNewDatabase(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := NewDatabase(ctx, ":memory:", testhelpers.Logger(t))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	if err = db.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if got, want := db.SchemaFingerprint(), schemaFingerprint(schemaDefinition); got != want {
		t.Errorf("SchemaFingerprint() = %q, want %q", got, want)
	}
	if _, err = db.ReadOnly.ExecContext(ctx, "INSERT INTO "+migrationsTable+" (fingerprint) VALUES ('x')"); err == nil {
		t.Error("read-only pool accepted a write")
	}
}
