package training

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/myrjola/pedalcoach/internal/contexthelpers"
)

// sqliteProfileRepository stores user profiles.
type sqliteProfileRepository struct {
	baseRepository
}

// Get returns the user's profile or DefaultProfile when none has been saved.
func (r *sqliteProfileRepository) Get(ctx context.Context) (Profile, error) {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	var (
		p             Profile
		days          string
		trainingTypes string
		maxHR         sql.NullInt64
		restingHR     sql.NullInt64
		lactate       sql.NullInt64
		age           sql.NullInt64
		weightKg      sql.NullFloat64
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT experience_level, workouts_per_week, preferred_days, preferred_training_types,
		       max_hr, resting_hr, lactate_threshold, age, weight_kg
		FROM user_profiles
		WHERE user_id = ?`, userID).Scan(
		&p.ExperienceLevel, &p.WorkoutsPerWeek, &days, &trainingTypes,
		&maxHR, &restingHR, &lactate, &age, &weightKg,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}

	if err = json.Unmarshal([]byte(days), &p.PreferredDays); err != nil {
		return Profile{}, fmt.Errorf("unmarshal preferred days: %w", err)
	}
	if err = json.Unmarshal([]byte(trainingTypes), &p.PreferredTrainingTypes); err != nil {
		return Profile{}, fmt.Errorf("unmarshal preferred training types: %w", err)
	}
	p.MaxHR = intPtr(maxHR)
	p.RestingHR = intPtr(restingHR)
	p.LactateThreshold = intPtr(lactate)
	p.Age = intPtr(age)
	if weightKg.Valid {
		w := weightKg.Float64
		p.WeightKg = &w
	}
	return p, nil
}

// Set upserts the user's profile.
func (r *sqliteProfileRepository) Set(ctx context.Context, p Profile) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)

	days, err := json.Marshal(nonNil(p.PreferredDays))
	if err != nil {
		return fmt.Errorf("marshal preferred days: %w", err)
	}
	trainingTypes, err := json.Marshal(nonNil(p.PreferredTrainingTypes))
	if err != nil {
		return fmt.Errorf("marshal preferred training types: %w", err)
	}

	_, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, experience_level, workouts_per_week, preferred_days,
		                           preferred_training_types, max_hr, resting_hr, lactate_threshold, age, weight_kg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			experience_level = excluded.experience_level,
			workouts_per_week = excluded.workouts_per_week,
			preferred_days = excluded.preferred_days,
			preferred_training_types = excluded.preferred_training_types,
			max_hr = excluded.max_hr,
			resting_hr = excluded.resting_hr,
			lactate_threshold = excluded.lactate_threshold,
			age = excluded.age,
			weight_kg = excluded.weight_kg,
			updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`,
		userID, p.ExperienceLevel, p.WorkoutsPerWeek, string(days), string(trainingTypes),
		p.MaxHR, p.RestingHR, p.LactateThreshold, p.Age, p.WeightKg,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
