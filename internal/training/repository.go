package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/pedalcoach/internal/sqlite"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// baseRepository holds what every sqlite repository needs.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger) baseRepository {
	return baseRepository{db: db, logger: logger}
}

// rollback is deferred after BeginTx. It is a no-op once the transaction has been committed.
func (r baseRepository) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.LogAttrs(ctx, slog.LevelError, "rollback transaction", slog.Any("error", err))
	}
}

// repository groups the sqlite repositories of the training service.
type repository struct {
	goals     *sqliteGoalRepository
	metaGoals *sqliteMetaGoalRepository
	profiles  *sqliteProfileRepository
	plans     *sqlitePlanRepository
	customs   *sqliteCustomTrainingRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger) *repository {
	base := newBaseRepository(db, logger)
	return &repository{
		goals:     &sqliteGoalRepository{baseRepository: base},
		metaGoals: &sqliteMetaGoalRepository{baseRepository: base},
		profiles:  &sqliteProfileRepository{baseRepository: base},
		plans:     &sqlitePlanRepository{baseRepository: base},
		customs:   &sqliteCustomTrainingRepository{baseRepository: base},
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampFormat)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// checkAffected turns an update or delete that matched no row into ErrNotFound.
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
