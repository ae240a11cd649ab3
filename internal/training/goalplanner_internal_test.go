package training

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"
)

func TestValidateGeneratedGoals(t *testing.T) {
	sub := func(goalType GoalType, period Period, target float64) GeneratedGoal {
		return GeneratedGoal{GoalType: goalType, TargetValue: target, Period: period, Description: "builds the base"}
	}
	answer := func(subGoals ...GeneratedGoal) GeneratedGoals {
		return GeneratedGoals{
			MetaGoal:  GeneratedMetaGoal{Title: "Finish a gran fondo", Description: "160 km in September"},
			SubGoals:  subGoals,
			Timeline:  "16 weeks",
			MainFocus: "endurance",
		}
	}
	untitled := answer(sub(GoalTypeDistance, Period4Weeks, 600))
	untitled.MetaGoal.Title = "  "

	tests := []struct {
		name    string
		answer  GeneratedGoals
		wantErr error
	}{
		{
			name:    "valid",
			answer:  answer(sub(GoalTypeDistance, Period4Weeks, 600), sub(GoalTypeDistance, Period3Months, 2000)),
			wantErr: nil,
		},
		{name: "no title", answer: untitled, wantErr: ErrInvalid},
		{name: "no sub-goals", answer: answer(), wantErr: ErrInvalid},
		{name: "unknown goal type", answer: answer(sub("watts", Period4Weeks, 250)), wantErr: ErrInvalid},
		{name: "zero target", answer: answer(sub(GoalTypeElevation, PeriodYear, 0)), wantErr: ErrInvalid},
		{
			name:    "duplicate type and period",
			answer:  answer(sub(GoalTypeTime, Period4Weeks, 20), sub(GoalTypeTime, Period4Weeks, 30)),
			wantErr: ErrDuplicateGoal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGeneratedGoals(tt.answer)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("validateGeneratedGoals() error = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.Is(err, tt.wantErr) || !errors.As(err, &ve) {
				t.Errorf("validateGeneratedGoals() error = %v, want a validation error wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeneratedGoalsSchema(t *testing.T) {
	schema := generatedGoalsSchema()
	properties, _ := schema["properties"].(map[string]any)
	subGoals, _ := properties["sub_goals"].(map[string]any)
	items, _ := subGoals["items"].(map[string]any)
	itemProperties, _ := items["properties"].(map[string]any)
	goalType, _ := itemProperties["goal_type"].(map[string]any)
	enum, _ := goalType["enum"].([]string)

	for _, want := range GoalTypes() {
		if !slices.Contains(enum, string(want)) {
			t.Errorf("goal_type enum %v lacks %s", enum, want)
		}
	}
	// Strict structured outputs require every property to be listed as required.
	required, _ := items["required"].([]string)
	if len(required) != len(itemProperties) {
		t.Errorf("sub-goal requires %v of %d properties", required, len(itemProperties))
	}
	if schema["additionalProperties"] != false {
		t.Error("schema allows additional properties")
	}
}

func TestRecentStats(t *testing.T) {
	now := time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)
	threshold := testRide(2, now.Add(-2*24*time.Hour), 40)
	threshold.Name = "Threshold intervals"
	activities := []Activity{
		testRide(1, now.Add(-24*time.Hour), 50),
		threshold,
		testRide(3, now.Add(-40*24*time.Hour), 100),
	}

	stats := recentStats(activities, now)
	if stats.Rides != 2 {
		t.Errorf("Rides = %d, want 2", stats.Rides)
	}
	if stats.DistanceKm != 90 {
		t.Errorf("DistanceKm = %v, want 90", stats.DistanceKm)
	}
	// testRide rides at 30 km/h.
	if math.Abs(stats.Hours-3) > 1e-9 {
		t.Errorf("Hours = %v, want 3", stats.Hours)
	}
	if stats.IntervalSessions != 1 {
		t.Errorf("IntervalSessions = %d, want 1", stats.IntervalSessions)
	}
}
