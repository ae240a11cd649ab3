package training

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoGoalsMessage explains an empty plan result.
const NoGoalsMessage = "no goals"

type planKey struct {
	userID    int
	weekStart string
}

type planEntry struct {
	plan      WeeklyPlan
	goalsHash string
	updatedAt time.Time
}

// PlanCache is the only writer of generated weekly plans. Entries are partitioned by user and ISO week and reused
// while the goals hash is unchanged.
type PlanCache struct {
	store  cacheStore[planKey, planEntry]
	logger *slog.Logger
}

func newPlanCache(store cacheStore[planKey, planEntry], logger *slog.Logger) *PlanCache {
	return &PlanCache{store: store, logger: logger}
}

// GetOrCompute returns the user's plan for the week containing weekStart. A stored plan is returned as is when its
// goals hash matches; otherwise a new plan is computed and upserted. When activities is empty, goal progress is taken
// from the goals' stored current values.
func (c *PlanCache) GetOrCompute(
	ctx context.Context,
	userID int,
	weekStart time.Time,
	goals []Goal,
	profile *Profile,
	activities []Activity,
) (PlanResult, error) {
	if len(goals) == 0 {
		return PlanResult{Plan: nil, Message: NoGoalsMessage, Cached: false, GoalsHash: ""}, nil
	}
	if err := checkDuplicateGoals(goals); err != nil {
		return PlanResult{}, err
	}
	weekStart = WeekStart(weekStart)
	hash, err := GoalsHash(goals, profile)
	if err != nil {
		return PlanResult{}, fmt.Errorf("hash goals: %w", err)
	}

	key := planKey{userID: userID, weekStart: weekStart.Format(time.DateOnly)}
	matches := func(e planEntry) bool { return e.goalsHash == hash }
	compute := func(context.Context) (planEntry, error) {
		plan := BuildPlan(weekStart, goals, profile, activities, time.Now())
		return planEntry{plan: plan, goalsHash: hash, updatedAt: time.Time{}}, nil
	}
	entry, hit, err := getOrCompute(ctx, c.store, key, matches, compute)
	if err != nil {
		return PlanResult{}, fmt.Errorf("get or compute plan: %w", err)
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "resolved weekly plan",
		slog.String("week_start", key.weekStart),
		slog.String("goals_hash", hash),
		slog.Bool("cached", hit))

	return PlanResult{Plan: &entry.plan, Message: "", Cached: hit, GoalsHash: hash}, nil
}

// BuildPlan runs progress calculation, prioritisation and day assignment for one week. now anchors the progress
// windows and is only consulted when activities are given.
func BuildPlan(weekStart time.Time, goals []Goal, profile *Profile, activities []Activity, now time.Time) WeeklyPlan {
	var progress []Progress
	if len(activities) > 0 {
		progress = ComputeAll(goals, activities, profile, now)
	}
	analysis := Analyze(goals, progress)
	ranked := Prioritize(analysis)

	p := DefaultProfile()
	if profile != nil {
		p = *profile
	}
	plan := GenerateWeeklyPlan(PlanInput{
		WeekStart:       weekStart,
		RankedTypes:     ranked,
		WorkoutsPerWeek: p.WorkoutsPerWeek,
		PreferredDays:   p.PreferredDays,
		Variation:       WeekVariation(weekStart),
	})
	plan.Priorities = ranked
	plan.Analysis = analysis
	return plan
}

// checkDuplicateGoals rejects goal lists where two goals share a goal type and period.
func checkDuplicateGoals(goals []Goal) error {
	type combination struct {
		goalType GoalType
		period   Period
	}
	seen := make(map[combination]bool, len(goals))
	for _, g := range goals {
		c := combination{goalType: g.GoalType, period: g.Period}
		if seen[c] {
			return &ValidationError{
				Field:   "goals",
				Message: fmt.Sprintf("more than one %s goal for period %s", g.GoalType, g.Period),
				Err:     ErrDuplicateGoal,
			}
		}
		seen[c] = true
	}
	return nil
}
