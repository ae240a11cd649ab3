package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/pedalcoach/internal/contexthelpers"
)

// sqliteGoalRepository stores the authenticated user's goals.
type sqliteGoalRepository struct {
	baseRepository
}

const goalColumns = `id, meta_goal_id, goal_type, target_value, current_value, period, metric_name, description,
	created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (Goal, error) {
	var (
		g          Goal
		metaGoalID sql.NullString
		metricName sql.NullString
		descr      sql.NullString
		createdAt  string
	)
	if err := row.Scan(&g.ID, &metaGoalID, &g.GoalType, &g.TargetValue, &g.CurrentValue, &g.Period,
		&metricName, &descr, &createdAt); err != nil {
		return Goal{}, err //nolint:wrapcheck // callers wrap with context.
	}
	g.MetaGoalID = stringPtr(metaGoalID)
	g.MetricName = stringPtr(metricName)
	g.Description = stringPtr(descr)
	var err error
	if g.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return Goal{}, err
	}
	return g, nil
}

// List returns the user's goals in creation order.
func (r *sqliteGoalRepository) List(ctx context.Context) (_ []Goal, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	goals := []Goal{}
	for rows.Next() {
		var g Goal
		if g, err = scanGoal(rows); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return goals, nil
}

// Get returns a single goal of the user.
func (r *sqliteGoalRepository) Get(ctx context.Context, id string) (Goal, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	row := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	if err != nil {
		return Goal{}, fmt.Errorf("query goal %s: %w", id, err)
	}
	return g, nil
}

// Create inserts a goal unless the user already has one with the same goal type and period.
func (r *sqliteGoalRepository) Create(ctx context.Context, g Goal) error {
	return r.save(ctx, g, true)
}

// Update replaces the editable fields of an existing goal.
func (r *sqliteGoalRepository) Update(ctx context.Context, g Goal) error {
	return r.save(ctx, g, false)
}

func (r *sqliteGoalRepository) save(ctx context.Context, g Goal, insert bool) error {
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer r.rollback(ctx, tx)

	if err = insertOrUpdateGoal(ctx, tx, contexthelpers.AuthenticatedUserID(ctx), g, insert); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// insertOrUpdateGoal enforces goal ownership rules inside tx so that concurrent writers cannot both pass the
// duplicate check.
func insertOrUpdateGoal(ctx context.Context, tx *sql.Tx, userID int, g Goal, insert bool) error {
	var duplicates int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM goals
		WHERE user_id = ? AND goal_type = ? AND period = ? AND id != ?`,
		userID, g.GoalType, g.Period, g.ID).Scan(&duplicates); err != nil {
		return fmt.Errorf("count duplicate goals: %w", err)
	}
	if duplicates > 0 {
		return &ValidationError{
			Field:   "goal_type",
			Message: fmt.Sprintf("a %s goal for period %s already exists", g.GoalType, g.Period),
			Err:     ErrDuplicateGoal,
		}
	}

	if g.MetaGoalID != nil {
		var owned int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM meta_goals WHERE id = ? AND user_id = ?`,
			*g.MetaGoalID, userID).Scan(&owned); err != nil {
			return fmt.Errorf("check meta goal: %w", err)
		}
		if owned == 0 {
			return invalid("meta_goal_id", "unknown meta goal %q", *g.MetaGoalID)
		}
	}

	if insert {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO goals (id, user_id, meta_goal_id, goal_type, target_value, current_value, period,
			                   metric_name, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, userID, nullString(g.MetaGoalID), g.GoalType, g.TargetValue, g.CurrentValue, g.Period,
			nullString(g.MetricName), nullString(g.Description), formatTimestamp(g.CreatedAt)); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}
		return nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE goals
		SET meta_goal_id = ?, goal_type = ?, target_value = ?, current_value = ?, period = ?, metric_name = ?,
		    description = ?
		WHERE id = ? AND user_id = ?`,
		nullString(g.MetaGoalID), g.GoalType, g.TargetValue, g.CurrentValue, g.Period, nullString(g.MetricName),
		nullString(g.Description), g.ID, userID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a goal of the user.
func (r *sqliteGoalRepository) Delete(ctx context.Context, id string) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return checkAffected(result)
}

// UpdateCurrentValues stores synced progress and returns how many goals changed.
func (r *sqliteGoalRepository) UpdateCurrentValues(ctx context.Context, values map[string]float64) (int, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer r.rollback(ctx, tx)

	var updated int
	for id, value := range values {
		var result sql.Result
		if result, err = tx.ExecContext(ctx, `
			UPDATE goals
			SET current_value = ?
			WHERE id = ? AND user_id = ? AND current_value != ?`,
			value, id, userID, value); err != nil {
			return 0, fmt.Errorf("update current value of %s: %w", id, err)
		}
		var n int64
		if n, err = result.RowsAffected(); err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		updated += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}
