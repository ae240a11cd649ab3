package training

// GoalType identifies the metric a goal tracks.
type GoalType string

const (
	GoalTypeDistance   GoalType = "distance"
	GoalTypeElevation  GoalType = "elevation"
	GoalTypeTime       GoalType = "time"
	GoalTypeSpeedFlat  GoalType = "speed_flat"
	GoalTypeSpeedHills GoalType = "speed_hills"
	GoalTypeLongRides  GoalType = "long_rides"
	GoalTypeIntervals  GoalType = "intervals"
	GoalTypePulse      GoalType = "pulse"
	GoalTypeCadence    GoalType = "cadence"
	GoalTypeFTP        GoalType = "ftp"
	GoalTypeWeight     GoalType = "weight"
	GoalTypeCustom     GoalType = "custom"
)

// GoalTypes lists every goal type in declaration order.
func GoalTypes() []GoalType {
	return []GoalType{
		GoalTypeDistance, GoalTypeElevation, GoalTypeTime, GoalTypeSpeedFlat, GoalTypeSpeedHills,
		GoalTypeLongRides, GoalTypeIntervals, GoalTypePulse, GoalTypeCadence, GoalTypeFTP, GoalTypeWeight,
		GoalTypeCustom,
	}
}

// Valid reports whether t is a registered goal type.
func (t GoalType) Valid() bool {
	_, ok := goalTypeRegistry[t]
	return ok
}

// progressFunc computes a goal's current value from activities already narrowed to the goal's period.
type progressFunc func(goal Goal, activities []Activity, profile *Profile) Progress

// goalTypeSpec is everything the engine knows about one goal type.
type goalTypeSpec struct {
	compute    progressFunc
	baseWeight float64
	primary    []TrainingTypeID
	secondary  []TrainingTypeID
	// storedValue marks types whose progress is the goal's current value rather than derived from activities.
	storedValue bool
}

// goalTypeRegistry is the single table of goal type behaviour. Adding a GoalType without an entry here fails
// TestGoalTypeRegistry_complete.
//
//nolint:gochecknoglobals // immutable lookup table.
var goalTypeRegistry = map[GoalType]goalTypeSpec{
	GoalTypeDistance: {
		compute:     distanceProgress,
		baseWeight:  1.0,
		primary:     []TrainingTypeID{Endurance, LongRide},
		secondary:   []TrainingTypeID{Tempo},
		storedValue: false,
	},
	GoalTypeElevation: {
		compute:     elevationProgress,
		baseWeight:  1.0,
		primary:     []TrainingTypeID{HillClimbing},
		secondary:   []TrainingTypeID{Endurance, Threshold},
		storedValue: false,
	},
	GoalTypeTime: {
		compute:     timeProgress,
		baseWeight:  0.9, //nolint:mnd // weight
		primary:     []TrainingTypeID{Endurance, LongRide},
		secondary:   []TrainingTypeID{Recovery},
		storedValue: false,
	},
	GoalTypeSpeedFlat: {
		compute:     speedFlatProgress,
		baseWeight:  1.2, //nolint:mnd // weight
		primary:     []TrainingTypeID{Tempo, Threshold},
		secondary:   []TrainingTypeID{Sprint},
		storedValue: false,
	},
	GoalTypeSpeedHills: {
		compute:     speedHillsProgress,
		baseWeight:  1.2, //nolint:mnd // weight
		primary:     []TrainingTypeID{HillClimbing, Threshold},
		secondary:   []TrainingTypeID{SweetSpot},
		storedValue: false,
	},
	GoalTypeLongRides: {
		compute:     longRidesProgress,
		baseWeight:  1.1, //nolint:mnd // weight
		primary:     []TrainingTypeID{LongRide},
		secondary:   []TrainingTypeID{Endurance},
		storedValue: false,
	},
	GoalTypeIntervals: {
		compute:     intervalsProgress,
		baseWeight:  1.3, //nolint:mnd // weight
		primary:     []TrainingTypeID{VO2Max, Threshold},
		secondary:   []TrainingTypeID{Sprint},
		storedValue: false,
	},
	GoalTypePulse: {
		compute:     pulseProgress,
		baseWeight:  0.8, //nolint:mnd // weight
		primary:     []TrainingTypeID{Endurance, Recovery},
		secondary:   []TrainingTypeID{Tempo},
		storedValue: false,
	},
	GoalTypeCadence: {
		compute:     cadenceProgress,
		baseWeight:  0.7, //nolint:mnd // weight
		primary:     []TrainingTypeID{CadenceDrills},
		secondary:   []TrainingTypeID{Recovery},
		storedValue: false,
	},
	GoalTypeFTP: {
		compute:     storedProgress,
		baseWeight:  1.5, //nolint:mnd // weight
		primary:     []TrainingTypeID{Threshold, SweetSpot},
		secondary:   []TrainingTypeID{VO2Max},
		storedValue: true,
	},
	GoalTypeWeight: {
		compute:     storedProgress,
		baseWeight:  0.8, //nolint:mnd // weight
		primary:     []TrainingTypeID{Endurance},
		secondary:   []TrainingTypeID{LongRide, Tempo},
		storedValue: true,
	},
	GoalTypeCustom: {
		compute:     storedProgress,
		baseWeight:  0.5, //nolint:mnd // weight
		primary:     []TrainingTypeID{Endurance},
		secondary:   nil,
		storedValue: true,
	},
}
