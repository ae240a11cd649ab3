package training

import (
	"math"
	"slices"
	"strings"
	"time"
)

const (
	minSpeedActivityMeters  = 3000
	flatGradientLimit       = 0.02
	hillGradientThreshold   = 0.015
	bigClimbMeters          = 500
	hillSpeedLimitKmh       = 25
	longRideMeters          = 50_000
	longRideSeconds         = 2.5 * 3600
	intervalSpeedRatio      = 1.4
	intervalMinAvgSpeedKmh  = 25
	metersPerSecondToKmh    = 3.6
	stravaRunWorkoutMarker  = 3
	stravaRideWorkoutMarker = 12
	secondsPerHour          = 3600
	secondsPerMinute        = 60
	metersPerKilometer      = 1000
)

// intervalKeywords match activity names of structured interval sessions in the languages our users write in.
//
//nolint:gochecknoglobals // immutable lookup table.
var intervalKeywords = []string{
	"interval", "intervall", "intervalle", "intervalo", "intervallo", "интервал",
	"tabata", "hiit", "vo2", "sweet spot", "sweetspot", "threshold", "schwelle", "seuil",
	"fartlek", "sprint", "repeats", "wiederholungen",
}

// ComputeProgress computes the current value of goal from the activities inside its period, measured back from now.
// It never panics on malformed activities; such activities simply do not contribute.
func ComputeProgress(goal Goal, activities []Activity, profile *Profile, now time.Time) Progress {
	spec, ok := goalTypeRegistry[goal.GoalType]
	if !ok {
		return storedProgress(goal, nil, profile)
	}
	return spec.compute(goal, inPeriod(activities, goal.Period, now), profile)
}

// ComputeAll computes progress for every goal. A goal whose computation panics contributes zero instead of aborting
// the batch.
func ComputeAll(goals []Goal, activities []Activity, profile *Profile, now time.Time) []Progress {
	progress := make([]Progress, len(goals))
	for i, goal := range goals {
		progress[i] = safeProgress(goal, activities, profile, now)
	}
	return progress
}

func safeProgress(goal Goal, activities []Activity, profile *Profile, now time.Time) (p Progress) {
	defer func() {
		if recover() != nil {
			p = Progress{}
		}
	}()
	return ComputeProgress(goal, activities, profile, now)
}

// inPeriod keeps activities that started in (now - period, now].
func inPeriod(activities []Activity, period Period, now time.Time) []Activity {
	days := period.Days()
	if days == 0 {
		return nil
	}
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	var matched []Activity
	for _, a := range activities {
		if a.StartDate.IsZero() {
			continue
		}
		if a.StartDate.After(since) && !a.StartDate.After(now) {
			matched = append(matched, a)
		}
	}
	return matched
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// measure returns v when it is usable as a physical quantity.
func measure(v float64) (float64, bool) {
	if !finite(v) || v < 0 {
		return 0, false
	}
	return v, true
}

func sum(activities []Activity, field func(Activity) float64) float64 {
	var total float64
	for _, a := range activities {
		if v, ok := measure(field(a)); ok {
			total += v
		}
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func distanceProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return Progress{Value: sum(activities, func(a Activity) float64 { return a.Distance }) / metersPerKilometer}
}

func elevationProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return Progress{Value: sum(activities, func(a Activity) float64 { return a.TotalElevationGain })}
}

func timeProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return Progress{Value: sum(activities, func(a Activity) float64 { return a.MovingTime }) / secondsPerHour}
}

// rideShape holds the validated fields the speed filters look at.
type rideShape struct {
	distance  float64
	elevation float64
	speedKmh  float64
}

func shapeOf(a Activity) (rideShape, bool) {
	distance, okDistance := measure(a.Distance)
	elevation, okElevation := measure(a.TotalElevationGain)
	speed, okSpeed := measure(a.AverageSpeed)
	if !okDistance || !okElevation || !okSpeed {
		return rideShape{}, false
	}
	return rideShape{distance: distance, elevation: elevation, speedKmh: speed * metersPerSecondToKmh}, true
}

// isFlat and isHilly are not complementary: a moderately hilly ride at 25 km/h or more matches neither.
func isFlat(r rideShape) bool {
	return r.distance > minSpeedActivityMeters &&
		r.elevation < flatGradientLimit*r.distance &&
		r.elevation < bigClimbMeters
}

func isHilly(r rideShape) bool {
	return r.distance > minSpeedActivityMeters &&
		(r.elevation >= hillGradientThreshold*r.distance || r.elevation >= bigClimbMeters) &&
		r.speedKmh < hillSpeedLimitKmh
}

func meanSpeed(activities []Activity, keep func(rideShape) bool) Progress {
	var speeds []float64
	for _, a := range activities {
		if shape, ok := shapeOf(a); ok && keep(shape) {
			speeds = append(speeds, shape.speedKmh)
		}
	}
	return Progress{Value: mean(speeds)}
}

func speedFlatProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return meanSpeed(activities, isFlat)
}

func speedHillsProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return meanSpeed(activities, isHilly)
}

func longRidesProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	var count int
	for _, a := range activities {
		distance, _ := measure(a.Distance)
		seconds, _ := measure(a.MovingTime)
		if distance > longRideMeters || seconds > longRideSeconds {
			count++
		}
	}
	return Progress{Value: float64(count)}
}

// isIntervalSession detects structured interval work from the workout marker, the name or the speed profile.
func isIntervalSession(a Activity) bool {
	if a.WorkoutType != nil && (*a.WorkoutType == stravaRunWorkoutMarker || *a.WorkoutType == stravaRideWorkoutMarker) {
		return true
	}
	name := strings.ToLower(a.Name)
	if slices.ContainsFunc(intervalKeywords, func(keyword string) bool { return strings.Contains(name, keyword) }) {
		return true
	}
	avg, okAvg := measure(a.AverageSpeed)
	peak, okPeak := measure(a.MaxSpeed)
	if !okAvg || !okPeak || avg == 0 {
		return false
	}
	return peak/avg > intervalSpeedRatio && avg*metersPerSecondToKmh > intervalMinAvgSpeedKmh
}

func intervalsProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	var p Progress
	for _, a := range activities {
		if !isIntervalSession(a) {
			continue
		}
		p.Intervals++
		if seconds, ok := measure(a.MovingTime); ok {
			p.Minutes += seconds / secondsPerMinute
		}
	}
	p.Value = float64(p.Intervals)
	return p
}

// positives collects the present, positive values of an optional field.
func positives(activities []Activity, field func(Activity) *float64) []float64 {
	var values []float64
	for _, a := range activities {
		v := field(a)
		if v == nil || !finite(*v) || *v <= 0 {
			continue
		}
		values = append(values, *v)
	}
	return values
}

func pulseProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return Progress{Value: mean(positives(activities, func(a Activity) *float64 { return a.AverageHeartrate }))}
}

func cadenceProgress(_ Goal, activities []Activity, _ *Profile) Progress {
	return Progress{Value: math.Round(mean(positives(activities, func(a Activity) *float64 { return a.AverageCadence })))}
}

// storedProgress is used by goal types without an activity-derived metric.
func storedProgress(goal Goal, _ []Activity, _ *Profile) Progress {
	if !finite(goal.CurrentValue) {
		return Progress{}
	}
	return Progress{Value: goal.CurrentValue}
}
