package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// planRetention is how long generated weekly plans are kept after their week has started.
const planRetention = 26 * 7 * 24 * time.Hour

// startDatabaseOptimizer runs maintenance once per hour: PRAGMA optimize and pruning of stale plan cache rows.
//
// See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startDatabaseOptimizer(ctx context.Context) {
	// Recommended performance enhancement for long-lived connections.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil {
		err = fmt.Errorf("init optimize database: %w", err)
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
	}
	for {
		start := time.Now()
		if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			err = fmt.Errorf("optimize database: %w", err)
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", slog.Any("error", err))
		} else {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "optimized database",
				slog.Duration("duration", time.Since(start)))
		}
		if pruned, err := db.PruneGeneratedPlans(ctx, start.Add(-planRetention)); err != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to prune generated plans", slog.Any("error", err))
		} else if pruned > 0 {
			db.logger.LogAttrs(ctx, slog.LevelInfo, "pruned generated plans", slog.Int64("rows", pruned))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
			continue
		}
	}
}

// PruneGeneratedPlans deletes cached weekly plans whose week started before cutoff and returns the number of rows
// deleted.
func (db *Database) PruneGeneratedPlans(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ReadWrite.ExecContext(ctx, `
		DELETE FROM generated_weekly_plans
		WHERE week_start_date < ?`, cutoff.UTC().Format(time.DateOnly))
	if err != nil {
		return 0, fmt.Errorf("delete generated plans: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}
