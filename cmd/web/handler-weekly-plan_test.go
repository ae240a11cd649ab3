package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/myrjola/pedalcoach/internal/training"
)

func Test_application_weeklyPlan(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startTestServer(t)
		client = server.Client()
		view   training.WeeklyPlanView
	)

	t.Run("No goals", func(t *testing.T) {
		if err := client.SendJSON(ctx, http.MethodPost, "/api/weekly-plan", nil, &view); err != nil {
			t.Fatalf("Failed to get weekly plan: %v", err)
		}
		if view.Plan != nil || view.Message != training.NoGoalsMessage {
			t.Errorf("view = %+v, want the no goals message", view.PlanResult)
		}
	})

	in := map[string]any{"goal_type": "distance", "target_value": 400, "period": "4w"}
	if err := client.SendJSON(ctx, http.MethodPost, "/api/goals", in, nil); err != nil {
		t.Fatalf("Failed to create goal: %v", err)
	}

	start := time.Now().Add(-48 * time.Hour)
	activities := map[string]any{"activities": []training.Activity{{
		ID:                 1,
		Name:               "Lunch Ride",
		Type:               "Ride",
		WorkoutType:        nil,
		StartDate:          start,
		Distance:           120000,
		MovingTime:         4 * 3600,
		TotalElevationGain: 300,
		AverageSpeed:       8.3,
		MaxSpeed:           14,
		AverageHeartrate:   nil,
		AverageCadence:     nil,
	}}}

	t.Run("Fresh plan", func(t *testing.T) {
		if err := client.SendJSON(ctx, http.MethodPost, "/api/weekly-plan", activities, &view); err != nil {
			t.Fatalf("Failed to get weekly plan: %v", err)
		}
		if view.Plan == nil || view.Cached {
			t.Fatalf("view = %+v, want a freshly computed plan", view.PlanResult)
		}
		if len(view.Plan.Days) != 7 {
			t.Errorf("plan has %d days, want 7", len(view.Plan.Days))
		}
		if view.Plan.WeekStartDate.Weekday() != time.Monday {
			t.Errorf("week starts on %s", view.Plan.WeekStartDate.Weekday())
		}
		if got := view.Plan.Analysis[0].ProgressPercent; got < 29.99 || got > 30.01 {
			t.Errorf("progress = %v%%, want 30%%", got)
		}
		stored, err := server.QueryInt(ctx, "SELECT COUNT(*) FROM generated_weekly_plans WHERE user_id = ?", 1)
		if err != nil {
			t.Fatalf("Failed to count stored plans: %v", err)
		}
		if stored != 1 {
			t.Errorf("stored plans = %d, want 1", stored)
		}
	})

	t.Run("Same input is cached", func(t *testing.T) {
		var again training.WeeklyPlanView
		if err := client.SendJSON(ctx, http.MethodPost, "/api/weekly-plan", activities, &again); err != nil {
			t.Fatalf("Failed to get weekly plan: %v", err)
		}
		if !again.Cached || again.GoalsHash != view.GoalsHash {
			t.Errorf("second request cached %v with hash %s, want cached %s", again.Cached, again.GoalsHash,
				view.GoalsHash)
		}
	})

	t.Run("Unknown fields are rejected", func(t *testing.T) {
		resp, err := client.Do(ctx, http.MethodPost, "/api/weekly-plan", []byte(`{"activites":[]}`))
		if err != nil {
			t.Fatalf("Failed to post: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})
}
