package training

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested goal, meta goal or override does not exist for the user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateGoal is returned when two goals share the same goal type and period.
	ErrDuplicateGoal = errors.New("duplicate goal type and period")
	// ErrInvalid marks input that failed validation.
	ErrInvalid = errors.New("invalid input")
	// ErrPlannerUnavailable is returned when AI goal generation is not configured.
	ErrPlannerUnavailable = errors.New("goal planner unavailable")
)

// ValidationError describes why user input was rejected.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalid
	}
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: ErrInvalid}
}

// Period is the trailing window over which goal progress is measured.
type Period string

const (
	Period4Weeks  Period = "4w"
	Period3Months Period = "3m"
	PeriodYear    Period = "year"
)

// Days returns the length of the trailing window.
func (p Period) Days() int {
	switch p {
	case Period4Weeks:
		return 28 //nolint:mnd // four weeks
	case Period3Months:
		return 92 //nolint:mnd // three months
	case PeriodYear:
		return 365 //nolint:mnd // one year
	}
	return 0
}

// WeeksRemaining is a fixed lookup used by the time factor, independent of any target date.
func (p Period) WeeksRemaining() int {
	switch p {
	case Period4Weeks:
		return 4 //nolint:mnd // four weeks
	case Period3Months:
		return 13 //nolint:mnd // three months
	case PeriodYear:
		return 52 //nolint:mnd // one year
	}
	return 0
}

func (p Period) Valid() bool {
	return p.Days() > 0
}

// Goal is a single trackable metric target within a period.
type Goal struct {
	ID           string    `json:"id"`
	MetaGoalID   *string   `json:"meta_goal_id,omitempty"`
	GoalType     GoalType  `json:"goal_type"`
	TargetValue  float64   `json:"target_value"`
	CurrentValue float64   `json:"current_value"`
	Period       Period    `json:"period"`
	MetricName   *string   `json:"metric_name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// GoalInput holds the user-editable fields of a goal.
type GoalInput struct {
	MetaGoalID   *string  `json:"meta_goal_id,omitempty"`
	GoalType     GoalType `json:"goal_type"`
	TargetValue  float64  `json:"target_value"`
	CurrentValue float64  `json:"current_value"`
	Period       Period   `json:"period"`
	MetricName   *string  `json:"metric_name,omitempty"`
	Description  *string  `json:"description,omitempty"`
}

func (in GoalInput) validate() error {
	if !in.GoalType.Valid() {
		return invalid("goal_type", "unknown goal type %q", in.GoalType)
	}
	if !in.Period.Valid() {
		return invalid("period", "unknown period %q", in.Period)
	}
	if !finite(in.TargetValue) || in.TargetValue <= 0 {
		return invalid("target_value", "must be a positive number")
	}
	if !finite(in.CurrentValue) || in.CurrentValue < 0 {
		return invalid("current_value", "must be a non-negative number")
	}
	return nil
}

// MetaGoalStatus tracks whether a meta goal is still being pursued.
type MetaGoalStatus string

const (
	MetaGoalActive    MetaGoalStatus = "active"
	MetaGoalCompleted MetaGoalStatus = "completed"
)

// MetaGoal groups sub-goals under a named objective. Deleting it deletes its goals.
type MetaGoal struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      MetaGoalStatus `json:"status"`
	TargetDate  *time.Time     `json:"target_date,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Goals       []Goal         `json:"goals"`
}

// MetaGoalInput holds the user-editable fields of a meta goal.
type MetaGoalInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
}

const maxTitleLength = 200

func (in MetaGoalInput) validate() error {
	if in.Title == "" || len(in.Title) > maxTitleLength {
		return invalid("title", "must be between 1 and %d characters", maxTitleLength)
	}
	return nil
}

// ExperienceLevel is the self-reported cycling experience of a user.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Profile holds the planning preferences and physiological data of a user. The engine only reads it.
type Profile struct {
	ExperienceLevel        ExperienceLevel  `json:"experience_level"`
	WorkoutsPerWeek        int              `json:"workouts_per_week"`
	PreferredDays          []DayKey         `json:"preferred_days"`
	PreferredTrainingTypes []TrainingTypeID `json:"preferred_training_types"`
	MaxHR                  *int             `json:"max_hr,omitempty"`
	RestingHR              *int             `json:"resting_hr,omitempty"`
	LactateThreshold       *int             `json:"lactate_threshold,omitempty"`
	Age                    *int             `json:"age,omitempty"`
	WeightKg               *float64         `json:"weight_kg,omitempty"`
}

const defaultWorkoutsPerWeek = 3

// DefaultProfile is used for users who have not saved a profile yet.
func DefaultProfile() Profile {
	return Profile{
		ExperienceLevel:        ExperienceIntermediate,
		WorkoutsPerWeek:        defaultWorkoutsPerWeek,
		PreferredDays:          []DayKey{},
		PreferredTrainingTypes: []TrainingTypeID{},
		MaxHR:                  nil,
		RestingHR:              nil,
		LactateThreshold:       nil,
		Age:                    nil,
		WeightKg:               nil,
	}
}

func (p Profile) validate(catalog *Catalog) error {
	switch p.ExperienceLevel {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced:
	default:
		return invalid("experience_level", "unknown experience level %q", p.ExperienceLevel)
	}
	if p.WorkoutsPerWeek < 1 || p.WorkoutsPerWeek > daysPerWeek {
		return invalid("workouts_per_week", "must be between 1 and %d", daysPerWeek)
	}
	if len(p.PreferredDays) > daysPerWeek {
		return invalid("preferred_days", "at most %d days", daysPerWeek)
	}
	seen := make(map[DayKey]bool, len(p.PreferredDays))
	for _, day := range p.PreferredDays {
		if !day.Valid() {
			return invalid("preferred_days", "unknown day %q", day)
		}
		if seen[day] {
			return invalid("preferred_days", "%s listed twice", day)
		}
		seen[day] = true
	}
	for _, id := range p.PreferredTrainingTypes {
		if _, ok := catalog.Lookup(id); !ok {
			return invalid("preferred_training_types", "unknown training type %q", id)
		}
	}
	if p.WeightKg != nil && (!finite(*p.WeightKg) || *p.WeightKg <= 0) {
		return invalid("weight_kg", "must be a positive number")
	}
	return nil
}

// Activity is a read-only record from the external activity source. Units follow the source: metres, seconds and
// metres per second.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	WorkoutType        *int      `json:"workout_type,omitempty"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`
	MovingTime         float64   `json:"moving_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   *float64  `json:"average_heartrate,omitempty"`
	AverageCadence     *float64  `json:"average_cadence,omitempty"`
}

// Progress is the computed current value of a goal. Minutes and Intervals are only filled for interval goals.
type Progress struct {
	Value     float64 `json:"value"`
	Minutes   float64 `json:"minutes,omitempty"`
	Intervals int     `json:"intervals,omitempty"`
}

// GoalAnalysis is the prioritisation input derived from one goal.
type GoalAnalysis struct {
	GoalID          string   `json:"goal_id"`
	GoalType        GoalType `json:"goal_type"`
	Period          Period   `json:"period"`
	TargetValue     float64  `json:"target_value"`
	CurrentValue    float64  `json:"current_value"`
	ProgressPercent float64  `json:"progress_percent"`
	ProgressFactor  float64  `json:"progress_factor"`
	TimeFactor      float64  `json:"time_factor"`
	Priority        float64  `json:"priority"`
}

// DayAssignment is either a training type reference or a rest day.
type DayAssignment struct {
	Day          DayKey         `json:"day"`
	TrainingType TrainingTypeID `json:"training_type,omitempty"`
	Rest         bool           `json:"rest"`
}

// WeeklyPlan assigns a training type or rest to each day of one ISO week.
type WeeklyPlan struct {
	WeekStartDate time.Time        `json:"week_start_date"`
	Variation     int              `json:"variation"`
	Days          []DayAssignment  `json:"days"`
	Priorities    []TrainingTypeID `json:"priorities"`
	Analysis      []GoalAnalysis   `json:"analysis"`
}

// Day returns the assignment for the given day.
func (p WeeklyPlan) Day(day DayKey) (DayAssignment, bool) {
	for _, a := range p.Days {
		if a.Day == day {
			return a, true
		}
	}
	return DayAssignment{}, false
}

// PlanResult is what the plan cache hands back. Plan is nil when the user has no goals and Message explains why.
type PlanResult struct {
	Plan      *WeeklyPlan `json:"plan"`
	Message   string      `json:"message,omitempty"`
	Cached    bool        `json:"cached"`
	GoalsHash string      `json:"goals_hash,omitempty"`
}

// TrainingPart is one block of a custom training, e.g. a warm-up.
type TrainingPart struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Intensity       string `json:"intensity,omitempty"`
}

// CustomTraining is a manual per-day override. It is returned next to the generated plan and never written by the
// engine.
type CustomTraining struct {
	Day          DayKey          `json:"day"`
	TrainingType string          `json:"training_type"`
	TrainingName string          `json:"training_name"`
	Details      json.RawMessage `json:"training_details,omitempty"`
	Parts        []TrainingPart  `json:"training_parts"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (c CustomTraining) validate() error {
	if !c.Day.Valid() {
		return invalid("day", "unknown day %q", c.Day)
	}
	if c.TrainingType == "" {
		return invalid("training_type", "must not be empty")
	}
	if c.TrainingName == "" {
		return invalid("training_name", "must not be empty")
	}
	if len(c.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(c.Details, &details); err != nil {
			return invalid("training_details", "must be a JSON object")
		}
	}
	for _, part := range c.Parts {
		if part.Name == "" || part.DurationMinutes < 0 {
			return invalid("training_parts", "each part needs a name and a non-negative duration")
		}
	}
	return nil
}

// WeeklyPlanView is a plan result together with the user's custom overrides. The caller decides precedence.
type WeeklyPlanView struct {
	PlanResult
	CustomTrainings []CustomTraining `json:"custom_trainings"`
}

// ProgressReport is the outcome of syncing goal progress from an activity batch.
type ProgressReport struct {
	Progress map[string]Progress `json:"progress"`
	Message  string              `json:"message,omitempty"`
	Updated  int                 `json:"updated"`
	Cached   bool                `json:"cached"`
}
