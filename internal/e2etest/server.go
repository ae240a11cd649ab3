package e2etest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/pedalcoach/internal/logging"
)

// Server is a running pedalcoach server with a direct handle to its database.
type Server struct {
	url        string
	schema     string
	client     *Client
	db         *sql.DB
	cancel     context.CancelCauseFunc
	serverDone chan struct{}
}

// HealthPath is polled until the server reports a migrated database.
const HealthPath = "/api/healthy"

type health struct {
	Status string `json:"status"`
	Schema string `json:"schema"`
}

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// LogDsnKey is the data source name key used to log the SQL DSN.
const LogDsnKey = "sqlDsn"

// StartServer starts the test server, waits for it to be ready, and return the server URL for testing.
//
// logSink is the writer to which the server logs are written. You usually want to use testhelpers.NewWriter.
// lookupEnv is a function that returns the value of an environment variable. It has same signature as [os.LookupEnv].
// run is the function that starts the server. We expect the server to log the address it's listening on to LogAddrKey.
func StartServer(
	t *testing.T,
	logSink io.Writer,
	lookupEnv func(string) (string, bool),
	run func(context.Context, *slog.Logger, func(string) (string, bool)) error,
) (*Server, error) {
	var (
		server *Server
		ctx    = t.Context()
	)
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})
	ctx, cancel := context.WithCancelCause(ctx)
	serverDone := make(chan struct{})

	// We need to grab the dynamically allocated port from the log output.
	addrCh := make(chan string, 1)
	// We need the sqlite DSN for the client to do database manipulation in tests.
	dsnCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				addrCh <- a.Value.String()
			}
			if a.Key == LogDsnKey {
				dsnCh <- a.Value.String()
			}
			return a
		},
	})))

	// Start the server and wait for it to be ready.
	go func() {
		defer close(serverDone)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()
	addr := ""
	dsn := ""
	for dsn == "" || addr == "" {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", context.Cause(ctx))
		case addr = <-addrCh:
		case dsn = <-dsnCh:
		}
	}

	var err error
	serverURL := fmt.Sprintf("http://%s", addr)
	client := NewClient(serverURL, DefaultUserHeader, 1)
	if err = client.WaitForReady(ctx, HealthPath); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	var h health
	if err = client.GetJSON(ctx, HealthPath, &h); err != nil {
		return nil, fmt.Errorf("get health: %w", err)
	}
	if h.Schema == "" {
		return nil, fmt.Errorf("server reports no schema fingerprint: status %q", h.Status)
	}
	var db *sql.DB
	db, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	server = &Server{
		url:        serverURL,
		schema:     h.Schema,
		client:     client,
		db:         db,
		cancel:     cancel,
		serverDone: serverDone,
	}

	return server, nil
}

// Client returns a client acting as user 1. Use [Client.AsUser] to act as someone else.
func (s *Server) Client() *Client {
	return s.client
}

func (s *Server) URL() string {
	return s.url
}

// Schema returns the schema fingerprint reported by the health check.
func (s *Server) Schema() string {
	return s.schema
}

// DB returns a connection to the server's database. In-memory databases are shared through the logged DSN.
func (s *Server) DB() *sql.DB {
	return s.db
}

// QueryInt runs a query returning a single integer, such as a row count.
func (s *Server) QueryInt(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("query int: %w", err)
	}
	return n, nil
}

func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.serverDone
}
