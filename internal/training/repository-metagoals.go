package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/pedalcoach/internal/contexthelpers"
)

// sqliteMetaGoalRepository stores meta goals. Their goals are deleted with them through ON DELETE CASCADE.
type sqliteMetaGoalRepository struct {
	baseRepository
}

func scanMetaGoal(row rowScanner) (MetaGoal, error) {
	var (
		m          MetaGoal
		targetDate sql.NullString
		createdAt  string
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Status, &targetDate, &createdAt); err != nil {
		return MetaGoal{}, err //nolint:wrapcheck // callers wrap with context.
	}
	if targetDate.Valid {
		t, err := time.Parse(time.DateOnly, targetDate.String)
		if err != nil {
			return MetaGoal{}, fmt.Errorf("parse target date: %w", err)
		}
		m.TargetDate = &t
	}
	var err error
	if m.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return MetaGoal{}, err
	}
	m.Goals = []Goal{}
	return m, nil
}

// List returns the user's meta goals with their goals.
func (r *sqliteMetaGoalRepository) List(ctx context.Context) (_ []MetaGoal, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, title, description, status, target_date, created_at
		FROM meta_goals
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query meta goals: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	metaGoals := []MetaGoal{}
	index := make(map[string]int)
	for rows.Next() {
		var m MetaGoal
		if m, err = scanMetaGoal(rows); err != nil {
			return nil, fmt.Errorf("scan meta goal: %w", err)
		}
		index[m.ID] = len(metaGoals)
		metaGoals = append(metaGoals, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	goals, err := (&sqliteGoalRepository{baseRepository: r.baseRepository}).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		if g.MetaGoalID == nil {
			continue
		}
		if i, ok := index[*g.MetaGoalID]; ok {
			metaGoals[i].Goals = append(metaGoals[i].Goals, g)
		}
	}
	return metaGoals, nil
}

// Create stores a meta goal and its sub-goals in one transaction. It fails with ErrDuplicateGoal when a sub-goal
// collides with an existing goal.
func (r *sqliteMetaGoalRepository) Create(ctx context.Context, m MetaGoal) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	tx, err := r.db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer r.rollback(ctx, tx)

	var targetDate sql.NullString
	if m.TargetDate != nil {
		targetDate = sql.NullString{String: m.TargetDate.Format(time.DateOnly), Valid: true}
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO meta_goals (id, user_id, title, description, status, target_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, userID, m.Title, m.Description, m.Status, targetDate, formatTimestamp(m.CreatedAt)); err != nil {
		return fmt.Errorf("insert meta goal: %w", err)
	}

	for _, g := range m.Goals {
		if err = insertOrUpdateGoal(ctx, tx, userID, g, true); err != nil {
			return fmt.Errorf("insert sub-goal %s: %w", g.GoalType, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Complete marks a meta goal as completed.
func (r *sqliteMetaGoalRepository) Complete(ctx context.Context, id string) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		UPDATE meta_goals SET status = ? WHERE id = ? AND user_id = ?`, MetaGoalCompleted, id, userID)
	if err != nil {
		return fmt.Errorf("complete meta goal: %w", err)
	}
	return checkAffected(result)
}

// Delete removes a meta goal together with its goals.
func (r *sqliteMetaGoalRepository) Delete(ctx context.Context, id string) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		DELETE FROM meta_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete meta goal: %w", err)
	}
	return checkAffected(result)
}
