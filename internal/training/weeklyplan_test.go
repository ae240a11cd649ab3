package training_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/pedalcoach/internal/training"
)

// table renders a plan as day -> training type with "rest" for rest days.
func table(plan training.WeeklyPlan) map[training.DayKey]string {
	t := make(map[training.DayKey]string, len(plan.Days))
	for _, d := range plan.Days {
		if d.Rest {
			t[d.Day] = "rest"
			continue
		}
		t[d.Day] = string(d.TrainingType)
	}
	return t
}

func TestGenerateWeeklyPlan_trainingDays(t *testing.T) {
	t.Parallel()
	ranked := []training.TrainingTypeID{training.Endurance, training.Threshold}

	tests := []struct {
		name            string
		workoutsPerWeek int
		preferredDays   []training.DayKey
		wantTraining    []training.DayKey
	}{
		{
			name:            "default order for three workouts",
			workoutsPerWeek: 3,
			preferredDays:   nil,
			wantTraining:    []training.DayKey{training.Monday, training.Wednesday, training.Friday},
		},
		{
			name:            "default order for five workouts",
			workoutsPerWeek: 5,
			preferredDays:   nil,
			wantTraining: []training.DayKey{
				training.Monday, training.Tuesday, training.Wednesday, training.Friday, training.Saturday,
			},
		},
		{
			name:            "preferred days in listed order",
			workoutsPerWeek: 2,
			preferredDays:   []training.DayKey{training.Sunday, training.Thursday, training.Monday},
			wantTraining:    []training.DayKey{training.Thursday, training.Sunday},
		},
		{
			name:            "too few preferred days are topped up and unknown or repeated days ignored",
			workoutsPerWeek: 3,
			preferredDays:   []training.DayKey{training.Saturday, "funday", training.Saturday, training.Tuesday},
			wantTraining:    []training.DayKey{training.Monday, training.Tuesday, training.Saturday},
		},
		{
			name:            "no workouts",
			workoutsPerWeek: 0,
			preferredDays:   nil,
			wantTraining:    nil,
		},
		{
			name:            "more workouts than days",
			workoutsPerWeek: 9,
			preferredDays:   nil,
			wantTraining:    training.Week(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := training.GenerateWeeklyPlan(training.PlanInput{
				WeekStart:       training.WeekStart(now),
				RankedTypes:     ranked,
				WorkoutsPerWeek: tt.workoutsPerWeek,
				PreferredDays:   tt.preferredDays,
				Variation:       0,
			})
			if len(plan.Days) != 7 {
				t.Fatalf("got %d days, want 7", len(plan.Days))
			}
			var gotTraining []training.DayKey
			for i, d := range plan.Days {
				if d.Day != training.Week()[i] {
					t.Errorf("day %d is %s, want %s", i, d.Day, training.Week()[i])
				}
				if d.Rest {
					if d.TrainingType != "" {
						t.Errorf("rest day %s has training type %s", d.Day, d.TrainingType)
					}
					continue
				}
				if d.TrainingType == "" {
					t.Errorf("training day %s has no training type", d.Day)
				}
				gotTraining = append(gotTraining, d.Day)
			}
			if diff := cmp.Diff(tt.wantTraining, gotTraining); diff != "" {
				t.Errorf("training days mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateWeeklyPlan_rotation(t *testing.T) {
	t.Parallel()
	ranked := []training.TrainingTypeID{training.Recovery, training.CadenceDrills, training.VO2Max, training.Threshold}
	want := []map[training.DayKey]string{
		{
			training.Monday: "recovery", training.Tuesday: "vo2max", training.Wednesday: "sweet_spot",
			training.Thursday: "threshold", training.Friday: "cadence_drills", training.Saturday: "long_ride",
			training.Sunday: "endurance",
		},
		{
			training.Monday: "recovery", training.Tuesday: "threshold", training.Wednesday: "tempo",
			training.Thursday: "vo2max", training.Friday: "cadence_drills", training.Saturday: "hill_climbing",
			training.Sunday: "endurance",
		},
		{
			training.Monday: "cadence_drills", training.Tuesday: "threshold", training.Wednesday: "tempo",
			training.Thursday: "vo2max", training.Friday: "recovery", training.Saturday: "hill_climbing",
			training.Sunday: "endurance",
		},
	}

	tables := make([]map[training.DayKey]string, 0, len(want))
	for variation := range len(want) {
		plan := training.GenerateWeeklyPlan(training.PlanInput{
			WeekStart:       training.WeekStart(now),
			RankedTypes:     ranked,
			WorkoutsPerWeek: 7,
			PreferredDays:   nil,
			Variation:       variation,
		})
		got := table(plan)
		if diff := cmp.Diff(want[variation], got); diff != "" {
			t.Errorf("variation %d mismatch (-want +got):\n%s", variation, diff)
		}
		tables = append(tables, got)
	}

	for i := range tables {
		for j := i + 1; j < len(tables); j++ {
			if cmp.Equal(tables[i], tables[j]) {
				t.Errorf("variations %d and %d produced the same week", i, j)
			}
		}
	}
}

func TestGenerateWeeklyPlan_deterministic(t *testing.T) {
	t.Parallel()
	in := training.PlanInput{
		WeekStart:       training.WeekStart(now),
		RankedTypes:     []training.TrainingTypeID{training.LongRide, training.Endurance, training.HillClimbing},
		WorkoutsPerWeek: 4,
		PreferredDays:   []training.DayKey{training.Saturday, training.Sunday},
		Variation:       2,
	}
	first := training.GenerateWeeklyPlan(in)
	for range 20 {
		if diff := cmp.Diff(first, training.GenerateWeeklyPlan(in)); diff != "" {
			t.Fatalf("GenerateWeeklyPlan() not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestGenerateWeeklyPlan_lowRankedCandidateWins(t *testing.T) {
	t.Parallel()
	// Endurance is ranked last but is still preferred over Monday's unranked first candidate.
	ranked := []training.TrainingTypeID{
		training.Tempo, training.Sprint, training.LongRide, training.HillClimbing, training.SweetSpot,
		training.Threshold, training.VO2Max, training.Endurance,
	}
	plan := training.GenerateWeeklyPlan(training.PlanInput{
		WeekStart:       training.WeekStart(now),
		RankedTypes:     ranked,
		WorkoutsPerWeek: 1,
		PreferredDays:   nil,
		Variation:       0,
	})
	monday, _ := plan.Day(training.Monday)
	if monday.TrainingType != training.Endurance {
		t.Errorf("Monday = %s, want %s", monday.TrainingType, training.Endurance)
	}
}

func TestWeekStart(t *testing.T) {
	t.Parallel()
	helsinki := time.FixedZone("EEST", 3*60*60)
	want := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
	}{
		{name: "thursday", t: now},
		{name: "monday midnight", t: want},
		{name: "sunday night", t: time.Date(2026, 10, 18, 23, 59, 59, 0, time.UTC)},
		{name: "monday morning east of UTC is still sunday in UTC", t: time.Date(2026, 10, 19, 1, 0, 0, 0, helsinki)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := training.WeekStart(tt.t); !got.Equal(want) || got.Location() != time.UTC {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.t, got, want)
			}
		})
	}
}

func TestWeekVariation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		weekStart time.Time
		want      int
	}{
		{weekStart: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), want: 0}, // ISO week 42
		{weekStart: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), want: 1},
		{weekStart: time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC), want: 2},
		{weekStart: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), want: 0},
	}
	for _, tt := range tests {
		if got := training.WeekVariation(tt.weekStart); got != tt.want {
			t.Errorf("WeekVariation(%s) = %d, want %d", tt.weekStart.Format(time.DateOnly), got, tt.want)
		}
	}
}
