package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/myrjola/pedalcoach/internal/envstruct"
	"github.com/myrjola/pedalcoach/internal/errors"
	"github.com/myrjola/pedalcoach/internal/flightrecorder"
	"github.com/myrjola/pedalcoach/internal/logging"
	"github.com/myrjola/pedalcoach/internal/sqlite"
	"github.com/myrjola/pedalcoach/internal/training"
)

type application struct {
	logger     *slog.Logger
	training   *training.Service
	userHeader string
	// flightRecorder is nil when trace capture is disabled.
	flightRecorder       *flightrecorder.Service
	slowRequestThreshold time.Duration
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"PEDALCOACH_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"PEDALCOACH_SQLITE_URL" envDefault:"./pedalcoach.sqlite3"`
	// UserHeader carries the numeric user ID set by the authenticating gateway in front of the server.
	UserHeader string `env:"PEDALCOACH_USER_HEADER" envDefault:"X-Pedalcoach-User"`
	// ProgressCacheTTL is how long synced goal progress is reused for an unchanged activity batch.
	ProgressCacheTTL time.Duration `env:"PEDALCOACH_PROGRESS_CACHE_TTL" envDefault:"10m"`
	// OpenAIAPIKey enables AI goal generation. Leave empty to disable it.
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	// TracesDirectory enables the flight recorder, which writes execution traces of slow requests there.
	TracesDirectory string `env:"PEDALCOACH_TRACES_DIRECTORY" envDefault:""`
	// SlowRequestThreshold is the request duration that triggers a trace capture.
	SlowRequestThreshold time.Duration `env:"PEDALCOACH_SLOW_REQUEST_THRESHOLD" envDefault:"1s"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	var planner training.GoalPlanner
	if cfg.OpenAIAPIKey != "" {
		planner = training.NewOpenAIGoalPlanner(cfg.OpenAIAPIKey, logger)
	} else {
		logger.LogAttrs(ctx, slog.LevelInfo, "goal planner disabled, OPENAI_API_KEY not set")
	}

	var service *training.Service
	if service, err = training.NewService(db, logger, training.Options{
		ProgressCacheTTL: cfg.ProgressCacheTTL,
		Planner:          planner,
	}); err != nil {
		return errors.Wrap(err, "new training service")
	}

	var recorder *flightrecorder.Service
	if cfg.TracesDirectory != "" {
		if recorder, err = flightrecorder.New(flightrecorder.Config{
			Logger:          logger,
			MinAge:          0,
			MaxBytes:        0,
			Cooldown:        0,
			TracesDirectory: cfg.TracesDirectory,
		}); err != nil {
			return errors.Wrap(err, "new flight recorder", slog.String("dir", cfg.TracesDirectory))
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(ctx)
	}

	app := application{
		logger:               logger,
		training:             service,
		userHeader:           cfg.UserHeader,
		flightRecorder:       recorder,
		slowRequestThreshold: cfg.SlowRequestThreshold,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
