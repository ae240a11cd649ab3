package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	_ "embed"
)

//go:embed schema.sql
var schemaDefinition string

// Database holds separate connection pools for writes and reads.
//
// SQLite allows only one writer at a time so ReadWrite is limited to a single connection while ReadOnly can serve
// concurrent readers thanks to write-ahead logging.
type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
	// schemaFingerprint identifies the schema the database was migrated to.
	schemaFingerprint string
}

// NewDatabase connects to a database and migrates the schema.
//
// It establishes two database connections, one for read/write operations and one for read-only operations.
// This is a best practice mentioned in https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err    error
		db     *Database
		report migrationReport
	)

	if db, err = connect(ctx, url, logger); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if report, err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(fmt.Errorf("migrateTo: %w", err), db.Close())
	}
	db.schemaFingerprint = report.fingerprint

	go db.startDatabaseOptimizer(ctx)

	return db, nil
}

// SchemaFingerprint identifies the schema the database was migrated to.
func (db *Database) SchemaFingerprint() string {
	return db.schemaFingerprint
}

// Ping verifies that both connection pools can reach the database.
func (db *Database) Ping(ctx context.Context) error {
	if err := db.ReadWrite.PingContext(ctx); err != nil {
		return fmt.Errorf("ping read-write database: %w", err)
	}
	var one int
	if err := db.ReadOnly.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("query read-only database: %w", err)
	}
	return nil
}

//nolint:gochecknoglobals // once is used to ensure that the SQLite driver is registered only once.
var once sync.Once

const optimizedDriver = "sqlite3optimized"

// registerOptimizedDriver that executes performance-enhancing pragmas on connection.
func registerOptimizedDriver() {
	sql.Register(optimizedDriver,
		&sqlite3.SQLiteDriver{
			Extensions: nil,
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec(
					// Temporary tables and indices live in memory.
					"PRAGMA temp_store = memory;"+
						// Memory-mapped I/O reduces syscalls.
						"PRAGMA mmap_size = 30000000000;"+
						// Litestream handles checkpoints.
						// See https://litestream.io/tips/#disable-autocheckpoints-for-high-write-load-servers
						"PRAGMA wal_autocheckpoint = 0;", nil); err != nil {
					return fmt.Errorf("exec optimization pragmas: %w", err)
				}
				return nil
			},
		})
}

const (
	maxReadConns    = 10
	busyTimeout     = 5 * time.Second
	connMaxLifetime = time.Hour
)

// dataSourceNames returns the read-write and read-only DSNs for url.
//
// In-memory databases get a random shared-cache name so that both pools see the same data while parallel tests stay
// isolated. See https://www.sqlite.org/inmemorydb.html.
//
// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
// The options prefixed with underscore '_' are documented at
// https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open.
func dataSourceNames(url string) (string, string) {
	params := []string{
		// Uses current time.Location for timestamps.
		"_loc=auto",
		// Foreign keys are checked at commit so that table rebuilds can violate them temporarily.
		"_defer_foreign_keys=1",
		// Write-ahead logging enables concurrent readers.
		"_journal_mode=wal",
		fmt.Sprintf("_busy_timeout=%d", busyTimeout.Milliseconds()),
		// https://www.sqlite.org/pragma.html#pragma_synchronous
		"_synchronous=normal",
		"_foreign_keys=on",
	}
	if strings.Contains(url, ":memory:") {
		url = "file:" + rand.Text()
		params = append(params, "mode=memory", "cache=shared")
	}
	common := strings.Join(params, "&")
	return fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s", url, common),
		fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s", url, common)
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open(optimizedDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(maxConns)
	pool.SetMaxIdleConns(maxConns)
	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetConnMaxIdleTime(connMaxLifetime)
	return pool, nil
}

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err         error
		readWriteDB *sql.DB
		readDB      *sql.DB
	)
	readWriteDSN, readDSN := dataSourceNames(url)

	once.Do(registerOptimizedDriver)

	if readWriteDB, err = openPool(readWriteDSN, 1); err != nil {
		return nil, fmt.Errorf("read-write database: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))

	// sql.DB is lazy. The ping creates the database and keeps an in-memory one alive.
	if err = readWriteDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping read-write database: %w", err), readWriteDB.Close())
	}

	if readDB, err = openPool(readDSN, maxReadConns); err != nil {
		return nil, errors.Join(fmt.Errorf("read database: %w", err), readWriteDB.Close())
	}

	return &Database{
		ReadWrite:         readWriteDB,
		ReadOnly:          readDB,
		logger:            logger,
		schemaFingerprint: "",
	}, nil
}

// Close closes the database connections.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
