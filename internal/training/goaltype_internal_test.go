package training

import (
	"slices"
	"testing"
	"time"
)

func TestGoalTypeRegistry_complete(t *testing.T) {
	declared := GoalTypes()
	if len(declared) != len(goalTypeRegistry) {
		t.Errorf("%d goal types declared but %d registered", len(declared), len(goalTypeRegistry))
	}
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	storedTypes := []GoalType{GoalTypeFTP, GoalTypeWeight, GoalTypeCustom}
	for _, goalType := range declared {
		spec, ok := goalTypeRegistry[goalType]
		if !ok {
			t.Errorf("goal type %s is not registered", goalType)
			continue
		}
		if spec.compute == nil {
			t.Errorf("goal type %s has no progress function", goalType)
		}
		if spec.baseWeight <= 0 {
			t.Errorf("goal type %s has base weight %v", goalType, spec.baseWeight)
		}
		if want := slices.Contains(storedTypes, goalType); spec.storedValue != want {
			t.Errorf("goal type %s storedValue = %t, want %t", goalType, spec.storedValue, want)
		}
		if len(spec.primary) == 0 {
			t.Errorf("goal type %s maps to no primary training type", goalType)
		}
		for _, id := range slices.Concat(spec.primary, spec.secondary) {
			if _, ok = catalog.Lookup(id); !ok {
				t.Errorf("goal type %s maps to unknown training type %s", goalType, id)
			}
		}
	}
}

func TestDayCandidates_complete(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	for _, day := range Week() {
		candidates := dayCandidates[day]
		if len(candidates) != variations {
			t.Errorf("%s has %d candidates, want %d so every variation differs", day, len(candidates), variations)
		}
		for _, id := range candidates {
			if _, ok := catalog.Lookup(id); !ok {
				t.Errorf("%s lists unknown training type %s", day, id)
			}
		}
	}
}

func TestRotateCandidates(t *testing.T) {
	candidates := []TrainingTypeID{Recovery, Endurance, CadenceDrills}
	want := [][]TrainingTypeID{
		{Recovery, Endurance, CadenceDrills},
		{Endurance, Recovery, CadenceDrills},
		{Endurance, CadenceDrills, Recovery},
	}
	for variation, w := range want {
		got := rotateCandidates(candidates, variation)
		for i := range w {
			if got[i] != w[i] {
				t.Errorf("rotateCandidates(%d) = %v, want %v", variation, got, w)
				break
			}
		}
	}
	if candidates[0] != Recovery {
		t.Errorf("rotateCandidates modified its input: %v", candidates)
	}
}

// Not parallel: temporarily registers a goal type whose calculation panics.
func TestComputeAll_recoversPerGoal(t *testing.T) {
	const broken GoalType = "broken"
	goalTypeRegistry[broken] = goalTypeSpec{
		compute: func(Goal, []Activity, *Profile) Progress {
			panic("malformed goal")
		},
		baseWeight:  1,
		primary:     []TrainingTypeID{Endurance},
		secondary:   nil,
		storedValue: false,
	}
	t.Cleanup(func() { delete(goalTypeRegistry, broken) })

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	activities := []Activity{{
		ID:                 1,
		Name:               "Ride",
		Type:               "Ride",
		WorkoutType:        nil,
		StartDate:          now.Add(-time.Hour),
		Distance:           42_000,
		MovingTime:         5400,
		TotalElevationGain: 300,
		AverageSpeed:       7.8,
		MaxSpeed:           14,
		AverageHeartrate:   nil,
		AverageCadence:     nil,
	}}
	goals := []Goal{
		{ID: "a", GoalType: broken, TargetValue: 1, Period: Period4Weeks},
		{ID: "b", GoalType: GoalTypeDistance, TargetValue: 100, Period: Period4Weeks},
	}

	got := ComputeAll(goals, activities, nil, now)
	if got[0].Value != 0 {
		t.Errorf("panicking goal contributed %v, want 0", got[0].Value)
	}
	if got[1].Value != 42 {
		t.Errorf("distance goal = %v, want 42", got[1].Value)
	}
}
