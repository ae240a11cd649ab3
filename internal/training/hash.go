package training

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type hashedGoal struct {
	ID           string   `json:"id"`
	GoalType     GoalType `json:"goal_type"`
	TargetValue  float64  `json:"target_value"`
	CurrentValue float64  `json:"current_value"`
	Period       Period   `json:"period"`
}

type hashedProfile struct {
	ExperienceLevel        ExperienceLevel  `json:"experience_level"`
	WorkoutsPerWeek        int              `json:"workouts_per_week"`
	PreferredDays          []DayKey         `json:"preferred_days"`
	PreferredTrainingTypes []TrainingTypeID `json:"preferred_training_types"`
}

// GoalsHash fingerprints the plan inputs that live in storage. Goal order does not matter; a nil profile hashes like
// DefaultProfile.
func GoalsHash(goals []Goal, profile *Profile) (string, error) {
	p := DefaultProfile()
	if profile != nil {
		p = *profile
	}
	content := struct {
		Goals   []hashedGoal  `json:"goals"`
		Profile hashedProfile `json:"profile"`
	}{
		Goals: make([]hashedGoal, 0, len(goals)),
		Profile: hashedProfile{
			ExperienceLevel:        p.ExperienceLevel,
			WorkoutsPerWeek:        p.WorkoutsPerWeek,
			PreferredDays:          nonNil(p.PreferredDays),
			PreferredTrainingTypes: nonNil(p.PreferredTrainingTypes),
		},
	}
	for _, g := range goals {
		content.Goals = append(content.Goals, hashedGoal{
			ID:           g.ID,
			GoalType:     g.GoalType,
			TargetValue:  g.TargetValue,
			CurrentValue: g.CurrentValue,
			Period:       g.Period,
		})
	}
	slices.SortFunc(content.Goals, func(a, b hashedGoal) int { return cmp.Compare(a.ID, b.ID) })
	return digest(content)
}

// ActivityFingerprint identifies an activity batch independent of its order.
func ActivityFingerprint(activities []Activity) (string, error) {
	type fingerprinted struct {
		ID                 int64   `json:"id"`
		StartDate          string  `json:"start_date"`
		Distance           float64 `json:"distance"`
		MovingTime         float64 `json:"moving_time"`
		TotalElevationGain float64 `json:"total_elevation_gain"`
	}
	tuples := make([]fingerprinted, 0, len(activities))
	for _, a := range activities {
		tuples = append(tuples, fingerprinted{
			ID:                 a.ID,
			StartDate:          a.StartDate.UTC().Format(time.RFC3339),
			Distance:           sanitize(a.Distance),
			MovingTime:         sanitize(a.MovingTime),
			TotalElevationGain: sanitize(a.TotalElevationGain),
		})
	}
	slices.SortFunc(tuples, func(a, b fingerprinted) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.StartDate, b.StartDate))
	})
	return digest(tuples)
}

func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal hash content: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// sanitize maps values encoding/json cannot represent to zero.
func sanitize(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
