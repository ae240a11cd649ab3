package training

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/pedalcoach/internal/testhelpers"
)

func newTestPlanCache(t *testing.T) (*PlanCache, *countingStore[planKey, planEntry]) {
	t.Helper()
	store := newCountingStore[planKey, planEntry]()
	return newPlanCache(store, testhelpers.Logger(t)), store
}

func testGoal(id string, goalType GoalType, period Period, target, current float64) Goal {
	return Goal{
		ID:           id,
		MetaGoalID:   nil,
		GoalType:     goalType,
		TargetValue:  target,
		CurrentValue: current,
		Period:       period,
		MetricName:   nil,
		Description:  nil,
		CreatedAt:    time.Time{},
	}
}

func TestPlanCache_noGoals(t *testing.T) {
	cache, store := newTestPlanCache(t)
	result, err := cache.GetOrCompute(t.Context(), 1, time.Now(), nil, nil, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	want := PlanResult{Plan: nil, Message: NoGoalsMessage, Cached: false, GoalsHash: ""}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("GetOrCompute() mismatch (-want +got):\n%s", diff)
	}
	if store.gets != 0 || store.puts != 0 {
		t.Errorf("storage touched: %d gets, %d puts", store.gets, store.puts)
	}
}

func TestPlanCache_duplicateGoals(t *testing.T) {
	cache, store := newTestPlanCache(t)
	goals := []Goal{
		testGoal("a", GoalTypeDistance, Period4Weeks, 400, 0),
		testGoal("b", GoalTypeElevation, Period4Weeks, 4000, 0),
		testGoal("c", GoalTypeDistance, Period4Weeks, 500, 0),
	}
	_, err := cache.GetOrCompute(t.Context(), 1, time.Now(), goals, nil, nil)
	if !errors.Is(err, ErrDuplicateGoal) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, ErrDuplicateGoal)
	}
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("error %T is not a *ValidationError", err)
	}
	if store.gets != 0 || store.puts != 0 {
		t.Errorf("storage touched: %d gets, %d puts", store.gets, store.puts)
	}
}

func TestPlanCache_reuseAndInvalidate(t *testing.T) {
	ctx := t.Context()
	cache, store := newTestPlanCache(t)
	thursday := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
	goals := []Goal{
		testGoal("a", GoalTypeDistance, Period4Weeks, 400, 120),
		testGoal("b", GoalTypeIntervals, Period4Weeks, 8, 2),
	}

	first, err := cache.GetOrCompute(ctx, 1, thursday, goals, nil, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if first.Cached || first.Plan == nil || store.puts != 1 {
		t.Fatalf("first call: cached %v, plan %v, puts %d", first.Cached, first.Plan, store.puts)
	}
	if !first.Plan.WeekStartDate.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week start = %v, want Monday 2026-10-12", first.Plan.WeekStartDate)
	}
	if len(first.Plan.Analysis) != 2 || len(first.Plan.Priorities) == 0 {
		t.Errorf("plan lacks analysis or priorities: %+v", first.Plan)
	}

	// Later in the same week with goals listed in another order.
	second, err := cache.GetOrCompute(ctx, 1, sunday, []Goal{goals[1], goals[0]}, nil, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if !second.Cached || store.puts != 1 {
		t.Errorf("second call: cached %v, puts %d, want a hit without writing", second.Cached, store.puts)
	}
	if diff := cmp.Diff(first.Plan, second.Plan); diff != "" {
		t.Errorf("cached plan differs (-first +second):\n%s", diff)
	}

	goals[0].CurrentValue = 380
	third, err := cache.GetOrCompute(ctx, 1, sunday, goals, nil, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if third.Cached || store.puts != 2 || third.GoalsHash == first.GoalsHash {
		t.Errorf("changed goal: cached %v, puts %d, hash changed %v", third.Cached, store.puts,
			third.GoalsHash != first.GoalsHash)
	}

	other, err := cache.GetOrCompute(ctx, 2, sunday, goals, nil, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if other.Cached {
		t.Error("plan of another user was reused")
	}
}

func TestPlanCache_profileChangesInvalidate(t *testing.T) {
	ctx := t.Context()
	cache, _ := newTestPlanCache(t)
	goals := []Goal{testGoal("a", GoalTypeLongRides, Period3Months, 10, 1)}
	profile := DefaultProfile()

	first, err := cache.GetOrCompute(ctx, 1, time.Now(), goals, &profile, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	profile.WorkoutsPerWeek = 5
	second, err := cache.GetOrCompute(ctx, 1, time.Now(), goals, &profile, nil)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if second.Cached {
		t.Fatal("plan reused after the profile changed")
	}
	var training int
	for _, d := range second.Plan.Days {
		if !d.Rest {
			training++
		}
	}
	if training != 5 {
		t.Errorf("got %d training days, want 5", training)
	}
	if first.GoalsHash == second.GoalsHash {
		t.Error("goals hash ignores the profile")
	}
}
