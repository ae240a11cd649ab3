package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/myrjola/pedalcoach/internal/contexthelpers"
)

// sqliteCustomTrainingRepository stores the manual per-day overrides.
type sqliteCustomTrainingRepository struct {
	baseRepository
}

// List returns the user's overrides ordered Monday to Sunday.
func (r *sqliteCustomTrainingRepository) List(ctx context.Context) (_ []CustomTraining, err error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT day_key, training_type, training_name, training_details, training_parts, updated_at
		FROM custom_training_plans
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query custom trainings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	byDay := make(map[DayKey]CustomTraining)
	for rows.Next() {
		var (
			c         CustomTraining
			details   string
			parts     string
			updatedAt string
		)
		if err = rows.Scan(&c.Day, &c.TrainingType, &c.TrainingName, &details, &parts, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan custom training: %w", err)
		}
		c.Details = json.RawMessage(details)
		if err = json.Unmarshal([]byte(parts), &c.Parts); err != nil {
			return nil, fmt.Errorf("unmarshal training parts: %w", err)
		}
		if c.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		byDay[c.Day] = c
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	trainings := []CustomTraining{}
	for _, day := range Week() {
		if c, ok := byDay[day]; ok {
			trainings = append(trainings, c)
		}
	}
	return trainings, nil
}

// Set upserts the override of one day.
func (r *sqliteCustomTrainingRepository) Set(ctx context.Context, c CustomTraining) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	details := c.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	}
	parts, err := json.Marshal(nonNil(c.Parts))
	if err != nil {
		return fmt.Errorf("marshal training parts: %w", err)
	}
	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO custom_training_plans (user_id, day_key, training_type, training_name, training_details,
		                                   training_parts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day_key) DO UPDATE SET
			training_type = excluded.training_type,
			training_name = excluded.training_name,
			training_details = excluded.training_details,
			training_parts = excluded.training_parts,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, c.Day, c.TrainingType, c.TrainingName, string(details), string(parts))
	if err != nil {
		return fmt.Errorf("save custom training: %w", err)
	}
	return nil
}

// Delete removes the override of one day.
func (r *sqliteCustomTrainingRepository) Delete(ctx context.Context, day DayKey) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := r.db.ReadWrite.ExecContext(ctx, `
		DELETE FROM custom_training_plans WHERE user_id = ? AND day_key = ?`, userID, day)
	if err != nil {
		return fmt.Errorf("delete custom training: %w", err)
	}
	return checkAffected(result)
}
