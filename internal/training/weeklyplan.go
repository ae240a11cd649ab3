package training

import (
	"slices"
	"time"
)

const variations = 3

// dayCandidates lists acceptable training types per day of the week before rotation.
//
//nolint:gochecknoglobals // immutable lookup table.
var dayCandidates = map[DayKey][]TrainingTypeID{
	Monday:    {Recovery, Endurance, CadenceDrills},
	Tuesday:   {VO2Max, Threshold, Sprint},
	Wednesday: {SweetSpot, Tempo, Endurance},
	Thursday:  {Threshold, HillClimbing, VO2Max},
	Friday:    {Endurance, Recovery, CadenceDrills},
	Saturday:  {LongRide, HillClimbing, Endurance},
	Sunday:    {LongRide, Endurance, Tempo},
}

// trainingDayOrder is the order in which days become training days when the user has no preference.
func trainingDayOrder() []DayKey {
	return []DayKey{Monday, Wednesday, Friday, Saturday, Tuesday, Thursday, Sunday}
}

// PlanInput is everything the weekly plan depends on.
type PlanInput struct {
	WeekStart       time.Time
	RankedTypes     []TrainingTypeID
	WorkoutsPerWeek int
	PreferredDays   []DayKey
	Variation       int
}

// GenerateWeeklyPlan assigns a training type or rest to every day of the week. It is a pure function of its input:
// equal inputs give equal plans.
func GenerateWeeklyPlan(in PlanInput) WeeklyPlan {
	training := selectTrainingDays(in.WorkoutsPerWeek, in.PreferredDays)

	used := make(map[TrainingTypeID]bool)
	days := make([]DayAssignment, 0, daysPerWeek)
	for _, day := range Week() {
		if !training[day] {
			days = append(days, DayAssignment{Day: day, TrainingType: "", Rest: true})
			continue
		}
		chosen := pickTrainingType(rotateCandidates(dayCandidates[day], in.Variation), in.RankedTypes, used)
		used[chosen] = true
		days = append(days, DayAssignment{Day: day, TrainingType: chosen, Rest: false})
	}

	return WeeklyPlan{
		WeekStartDate: in.WeekStart,
		Variation:     in.Variation,
		Days:          days,
		Priorities:    nil,
		Analysis:      nil,
	}
}

// selectTrainingDays takes the preferred days in listed order and tops up from the default order when the user
// prefers fewer days than they want to train.
func selectTrainingDays(workoutsPerWeek int, preferred []DayKey) map[DayKey]bool {
	n := min(max(workoutsPerWeek, 0), daysPerWeek)
	selected := make(map[DayKey]bool, n)
	for _, day := range slices.Concat(preferred, trainingDayOrder()) {
		if len(selected) == n {
			break
		}
		if day.Valid() {
			selected[day] = true
		}
	}
	return selected
}

// rotateCandidates applies the week variation: 1 swaps the first two candidates and 2 rotates left by one.
func rotateCandidates(candidates []TrainingTypeID, variation int) []TrainingTypeID {
	rotated := slices.Clone(candidates)
	if len(rotated) < 2 { //nolint:mnd // rotation needs two candidates.
		return rotated
	}
	switch variation {
	case 1:
		rotated[0], rotated[1] = rotated[1], rotated[0]
	case 2: //nolint:mnd // left rotation
		rotated = append(rotated[1:], rotated[0])
	}
	return rotated
}

// pickTrainingType prefers, in order: an unused ranked candidate, a ranked candidate, an unused candidate and finally
// the first candidate.
func pickTrainingType(candidates, ranked []TrainingTypeID, used map[TrainingTypeID]bool) TrainingTypeID {
	isRanked := func(id TrainingTypeID) bool { return slices.Contains(ranked, id) }
	for _, id := range candidates {
		if isRanked(id) && !used[id] {
			return id
		}
	}
	for _, id := range candidates {
		if isRanked(id) {
			return id
		}
	}
	for _, id := range candidates {
		if !used[id] {
			return id
		}
	}
	if len(candidates) == 0 {
		return Endurance
	}
	return candidates[0]
}
