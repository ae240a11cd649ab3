package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// sqlitePlanRepository backs the plan cache with the generated_weekly_plans table. The JSON columns are decoded into
// typed values here and nowhere else.
type sqlitePlanRepository struct {
	baseRepository
}

// storedPlan is the plan_data column.
type storedPlan struct {
	WeekStartDate string          `json:"week_start_date"`
	Variation     int             `json:"variation"`
	Days          []DayAssignment `json:"days"`
}

// Get implements cacheStore.
func (r *sqlitePlanRepository) Get(ctx context.Context, key planKey) (planEntry, bool, error) {
	var (
		planData       string
		analysisData   string
		prioritiesData string
		goalsHash      string
		updatedAt      string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT plan_data, analysis_data, priorities_data, goals_hash, updated_at
		FROM generated_weekly_plans
		WHERE user_id = ? AND week_start_date = ?`, key.userID, key.weekStart).
		Scan(&planData, &analysisData, &prioritiesData, &goalsHash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return planEntry{}, false, nil
	}
	if err != nil {
		return planEntry{}, false, fmt.Errorf("query weekly plan: %w", err)
	}

	entry, err := decodePlanEntry(planData, analysisData, prioritiesData, updatedAt)
	if err != nil {
		// A row we cannot decode is treated as a miss so that it gets overwritten.
		r.logger.LogAttrs(ctx, slog.LevelWarn, "discarding undecodable weekly plan",
			slog.String("week_start", key.weekStart), slog.Any("error", err))
		return planEntry{}, false, nil
	}
	entry.goalsHash = goalsHash
	return entry, true, nil
}

func decodePlanEntry(planData, analysisData, prioritiesData, updatedAt string) (planEntry, error) {
	updated, err := parseTimestamp(updatedAt)
	if err != nil {
		return planEntry{}, fmt.Errorf("parse updated at: %w", err)
	}
	var stored storedPlan
	if err = json.Unmarshal([]byte(planData), &stored); err != nil {
		return planEntry{}, fmt.Errorf("unmarshal plan data: %w", err)
	}
	weekStart, err := time.Parse(time.DateOnly, stored.WeekStartDate)
	if err != nil {
		return planEntry{}, fmt.Errorf("parse week start: %w", err)
	}
	plan := WeeklyPlan{
		WeekStartDate: weekStart,
		Variation:     stored.Variation,
		Days:          stored.Days,
		Priorities:    nil,
		Analysis:      nil,
	}
	if err = json.Unmarshal([]byte(analysisData), &plan.Analysis); err != nil {
		return planEntry{}, fmt.Errorf("unmarshal analysis data: %w", err)
	}
	if err = json.Unmarshal([]byte(prioritiesData), &plan.Priorities); err != nil {
		return planEntry{}, fmt.Errorf("unmarshal priorities data: %w", err)
	}
	return planEntry{plan: plan, goalsHash: "", updatedAt: updated}, nil
}

// Put implements cacheStore with an upsert so that racing writers converge on the last write.
func (r *sqlitePlanRepository) Put(ctx context.Context, key planKey, entry planEntry) error {
	planData, err := json.Marshal(storedPlan{
		WeekStartDate: entry.plan.WeekStartDate.Format(time.DateOnly),
		Variation:     entry.plan.Variation,
		Days:          entry.plan.Days,
	})
	if err != nil {
		return fmt.Errorf("marshal plan data: %w", err)
	}
	analysisData, err := json.Marshal(nonNil(entry.plan.Analysis))
	if err != nil {
		return fmt.Errorf("marshal analysis data: %w", err)
	}
	prioritiesData, err := json.Marshal(nonNil(entry.plan.Priorities))
	if err != nil {
		return fmt.Errorf("marshal priorities data: %w", err)
	}

	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO generated_weekly_plans (user_id, week_start_date, plan_data, analysis_data, priorities_data,
		                                    goals_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_start_date) DO UPDATE SET
			plan_data = excluded.plan_data,
			analysis_data = excluded.analysis_data,
			priorities_data = excluded.priorities_data,
			goals_hash = excluded.goals_hash,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		key.userID, key.weekStart, string(planData), string(analysisData), string(prioritiesData), entry.goalsHash)
	if err != nil {
		return fmt.Errorf("upsert weekly plan: %w", err)
	}
	return nil
}
