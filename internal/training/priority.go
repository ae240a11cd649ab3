package training

import (
	"cmp"
	"slices"
)

const (
	minProgressFactor = 0.1
	minTimeFactor     = 0.5
	primaryMultiplier = 2
	fullProgress      = 100
)

// Analyze turns goals and their computed progress into analyses sorted by priority, highest first. progress[i]
// belongs to goals[i]; goals without a progress entry use their stored current value.
func Analyze(goals []Goal, progress []Progress) []GoalAnalysis {
	analysis := make([]GoalAnalysis, 0, len(goals))
	for i, goal := range goals {
		current := storedProgress(goal, nil, nil).Value
		if i < len(progress) {
			current = progress[i].Value
		}
		analysis = append(analysis, analyzeGoal(goal, current))
	}
	slices.SortStableFunc(analysis, func(a, b GoalAnalysis) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return analysis
}

func analyzeGoal(goal Goal, current float64) GoalAnalysis {
	pct := progressPercent(current, goal.TargetValue)
	progressFactor := max(minProgressFactor, (fullProgress-pct)/fullProgress)
	var timeFactor float64
	if weeks := goal.Period.WeeksRemaining(); weeks > 0 {
		timeFactor = max(minTimeFactor, 1/float64(weeks))
	} else {
		timeFactor = minTimeFactor
	}
	var baseWeight float64
	if spec, ok := goalTypeRegistry[goal.GoalType]; ok {
		baseWeight = spec.baseWeight
	}
	return GoalAnalysis{
		GoalID:          goal.ID,
		GoalType:        goal.GoalType,
		Period:          goal.Period,
		TargetValue:     goal.TargetValue,
		CurrentValue:    current,
		ProgressPercent: pct,
		ProgressFactor:  progressFactor,
		TimeFactor:      timeFactor,
		Priority:        baseWeight * progressFactor * timeFactor,
	}
}

// progressPercent is current/target as a percentage clamped to [0, 100]. A non-positive target yields 0.
func progressPercent(current, target float64) float64 {
	if !finite(current) || !finite(target) || target <= 0 {
		return 0
	}
	return min(fullProgress, max(0, current/target*fullProgress))
}

// Prioritize accumulates training type scores over the analyses. Primary types of a goal earn twice its priority and
// secondary types earn its priority once. Types are returned by score, highest first; ties keep the order in which
// the types were first scored.
func Prioritize(analysis []GoalAnalysis) []TrainingTypeID {
	var order []TrainingTypeID
	scores := make(map[TrainingTypeID]float64)
	add := func(id TrainingTypeID, score float64) {
		if _, seen := scores[id]; !seen {
			order = append(order, id)
		}
		scores[id] += score
	}
	for _, a := range analysis {
		spec, ok := goalTypeRegistry[a.GoalType]
		if !ok {
			continue
		}
		for _, id := range spec.primary {
			add(id, a.Priority*primaryMultiplier)
		}
		for _, id := range spec.secondary {
			add(id, a.Priority)
		}
	}
	slices.SortStableFunc(order, func(a, b TrainingTypeID) int {
		return cmp.Compare(scores[b], scores[a])
	})
	return order
}
