package training

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/pedalcoach/internal/contexthelpers"
	"github.com/myrjola/pedalcoach/internal/sqlite"
)

// InsufficientDataMessage explains a progress sync without activities.
const InsufficientDataMessage = "insufficient data"

// Options configure the Service.
type Options struct {
	// ProgressCacheTTL defaults to DefaultProgressCacheTTL.
	ProgressCacheTTL time.Duration
	// Planner is nil when AI goal generation is not configured.
	Planner GoalPlanner
}

// Service handles goals, profiles and weekly plan recommendations of the authenticated user.
type Service struct {
	db       *sqlite.Database
	repo     *repository
	catalog  *Catalog
	plans    *PlanCache
	progress *ProgressCache
	planner  GoalPlanner
	logger   *slog.Logger
}

// NewService creates a training service. It owns both caches for the lifetime of the process.
func NewService(db *sqlite.Database, logger *slog.Logger, opts Options) (*Service, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	repo := newRepository(db, logger)
	return &Service{
		db:       db,
		repo:     repo,
		catalog:  catalog,
		plans:    newPlanCache(repo.plans, logger),
		progress: NewProgressCache(opts.ProgressCacheTTL),
		planner:  opts.Planner,
		logger:   logger,
	}, nil
}

// Health reports the schema fingerprint or an error when the database is unreachable.
func (s *Service) Health(ctx context.Context) (string, error) {
	if err := s.db.Ping(ctx); err != nil {
		return "", fmt.Errorf("ping database: %w", err)
	}
	return s.db.SchemaFingerprint(), nil
}

// TrainingTypes returns the training type catalog.
func (s *Service) TrainingTypes() []TrainingType {
	return s.catalog.All()
}

// GetProfile returns the user's profile.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	p, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile validates and stores the user's profile.
func (s *Service) SaveProfile(ctx context.Context, p Profile) error {
	p.PreferredDays = nonNil(p.PreferredDays)
	p.PreferredTrainingTypes = nonNil(p.PreferredTrainingTypes)
	if err := p.validate(s.catalog); err != nil {
		return err
	}
	if err := s.repo.profiles.Set(ctx, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ListGoals returns the user's goals.
func (s *Service) ListGoals(ctx context.Context) ([]Goal, error) {
	goals, err := s.repo.goals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// CreateGoal adds a goal. A second goal with the same goal type and period is rejected with ErrDuplicateGoal.
func (s *Service) CreateGoal(ctx context.Context, in GoalInput) (Goal, error) {
	if err := in.validate(); err != nil {
		return Goal{}, err
	}
	g := newGoal(uuid.NewString(), in, time.Now())
	if err := s.repo.goals.Create(ctx, g); err != nil {
		return Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

// UpdateGoal replaces the editable fields of a goal.
func (s *Service) UpdateGoal(ctx context.Context, id string, in GoalInput) (Goal, error) {
	if err := in.validate(); err != nil {
		return Goal{}, err
	}
	existing, err := s.repo.goals.Get(ctx, id)
	if err != nil {
		return Goal{}, fmt.Errorf("get goal: %w", err)
	}
	g := newGoal(id, in, existing.CreatedAt)
	if err = s.repo.goals.Update(ctx, g); err != nil {
		return Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func newGoal(id string, in GoalInput, createdAt time.Time) Goal {
	return Goal{
		ID:           id,
		MetaGoalID:   in.MetaGoalID,
		GoalType:     in.GoalType,
		TargetValue:  in.TargetValue,
		CurrentValue: in.CurrentValue,
		Period:       in.Period,
		MetricName:   in.MetricName,
		Description:  in.Description,
		CreatedAt:    createdAt.UTC().Truncate(time.Millisecond),
	}
}

// DeleteGoal removes a goal.
func (s *Service) DeleteGoal(ctx context.Context, id string) error {
	if err := s.repo.goals.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// ListMetaGoals returns the user's meta goals with their goals.
func (s *Service) ListMetaGoals(ctx context.Context) ([]MetaGoal, error) {
	metaGoals, err := s.repo.metaGoals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meta goals: %w", err)
	}
	return metaGoals, nil
}

// CreateMetaGoal adds an active meta goal without sub-goals.
func (s *Service) CreateMetaGoal(ctx context.Context, in MetaGoalInput) (MetaGoal, error) {
	if err := in.validate(); err != nil {
		return MetaGoal{}, err
	}
	m := MetaGoal{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      MetaGoalActive,
		TargetDate:  in.TargetDate,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Goals:       []Goal{},
	}
	if err := s.repo.metaGoals.Create(ctx, m); err != nil {
		return MetaGoal{}, fmt.Errorf("create meta goal: %w", err)
	}
	return m, nil
}

// CompleteMetaGoal marks a meta goal as completed.
func (s *Service) CompleteMetaGoal(ctx context.Context, id string) error {
	if err := s.repo.metaGoals.Complete(ctx, id); err != nil {
		return fmt.Errorf("complete meta goal: %w", err)
	}
	return nil
}

// DeleteMetaGoal removes a meta goal and its goals.
func (s *Service) DeleteMetaGoal(ctx context.Context, id string) error {
	if err := s.repo.metaGoals.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete meta goal: %w", err)
	}
	return nil
}

// ListCustomTrainings returns the user's per-day overrides.
func (s *Service) ListCustomTrainings(ctx context.Context) ([]CustomTraining, error) {
	trainings, err := s.repo.customs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom trainings: %w", err)
	}
	return trainings, nil
}

// SaveCustomTraining upserts the override of c.Day.
func (s *Service) SaveCustomTraining(ctx context.Context, c CustomTraining) error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := s.repo.customs.Set(ctx, c); err != nil {
		return fmt.Errorf("save custom training: %w", err)
	}
	return nil
}

// DeleteCustomTraining removes the override of day.
func (s *Service) DeleteCustomTraining(ctx context.Context, day DayKey) error {
	if !day.Valid() {
		return invalid("day", "unknown day %q", day)
	}
	if err := s.repo.customs.Delete(ctx, day); err != nil {
		return fmt.Errorf("delete custom training: %w", err)
	}
	return nil
}

// SyncGoalProgress computes goal progress from activities and stores the changed current values. Without activities
// the stored values are left alone and the report says there is insufficient data.
func (s *Service) SyncGoalProgress(ctx context.Context, activities []Activity) (ProgressReport, error) {
	report := ProgressReport{Progress: map[string]Progress{}, Message: "", Updated: 0, Cached: false}
	if len(activities) == 0 {
		report.Message = InsufficientDataMessage
		return report, nil
	}
	goals, err := s.repo.goals.List(ctx)
	if err != nil {
		return ProgressReport{}, fmt.Errorf("list goals: %w", err)
	}
	if len(goals) == 0 {
		report.Message = NoGoalsMessage
		return report, nil
	}
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return ProgressReport{}, fmt.Errorf("get profile: %w", err)
	}

	userID := contexthelpers.AuthenticatedUserID(ctx)
	if report.Progress, report.Cached, err = s.progress.GetOrCompute(ctx, userID, goals, activities, &profile); err != nil {
		return ProgressReport{}, err
	}

	values := make(map[string]float64, len(report.Progress))
	for id, p := range report.Progress {
		values[id] = p.Value
	}
	if report.Updated, err = s.repo.goals.UpdateCurrentValues(ctx, values); err != nil {
		return ProgressReport{}, fmt.Errorf("update current values: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "synced goal progress",
		slog.Int("activities", len(activities)),
		slog.Int("goals", len(goals)),
		slog.Int("updated", report.Updated),
		slog.Bool("cached", report.Cached))
	return report, nil
}

// WeeklyPlan returns the plan for the current week together with the user's overrides. Posted activities are synced
// into goal progress first so that the goals hash reflects them.
func (s *Service) WeeklyPlan(ctx context.Context, activities []Activity) (WeeklyPlanView, error) {
	if len(activities) > 0 {
		if _, err := s.SyncGoalProgress(ctx, activities); err != nil {
			return WeeklyPlanView{}, fmt.Errorf("sync goal progress: %w", err)
		}
	}
	goals, err := s.repo.goals.List(ctx)
	if err != nil {
		return WeeklyPlanView{}, fmt.Errorf("list goals: %w", err)
	}
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return WeeklyPlanView{}, fmt.Errorf("get profile: %w", err)
	}

	userID := contexthelpers.AuthenticatedUserID(ctx)
	result, err := s.plans.GetOrCompute(ctx, userID, time.Now(), goals, &profile, activities)
	if err != nil {
		return WeeklyPlanView{}, fmt.Errorf("get or compute plan: %w", err)
	}
	customs, err := s.repo.customs.List(ctx)
	if err != nil {
		return WeeklyPlanView{}, fmt.Errorf("list custom trainings: %w", err)
	}
	return WeeklyPlanView{PlanResult: result, CustomTrainings: customs}, nil
}

// GenerateGoals asks the goal planner for a meta goal with sub-goals and stores the answer in one transaction. The
// answer is rejected when sub-goals repeat a goal type and period or collide with existing goals.
func (s *Service) GenerateGoals(ctx context.Context, req GoalRequest) (MetaGoal, error) {
	if s.planner == nil {
		return MetaGoal{}, ErrPlannerUnavailable
	}
	if strings.TrimSpace(req.Description) == "" {
		return MetaGoal{}, invalid("description", "must not be empty")
	}
	profile, err := s.repo.profiles.Get(ctx)
	if err != nil {
		return MetaGoal{}, fmt.Errorf("get profile: %w", err)
	}

	now := time.Now()
	in := GoalPlannerInput{
		Description: req.Description,
		TargetDate:  "",
		Profile:     profile,
		Stats:       recentStats(req.Activities, now),
	}
	if req.TargetDate != nil {
		in.TargetDate = req.TargetDate.Format(time.DateOnly)
	}
	generated, err := s.planner.PlanGoals(ctx, in)
	if err != nil {
		return MetaGoal{}, fmt.Errorf("plan goals: %w", err)
	}
	if err = validateGeneratedGoals(generated); err != nil {
		return MetaGoal{}, err
	}

	createdAt := now.UTC().Truncate(time.Millisecond)
	m := MetaGoal{
		ID:          uuid.NewString(),
		Title:       generated.MetaGoal.Title,
		Description: generated.MetaGoal.Description,
		Status:      MetaGoalActive,
		TargetDate:  req.TargetDate,
		CreatedAt:   createdAt,
		Goals:       make([]Goal, 0, len(generated.SubGoals)),
	}
	for _, sub := range generated.SubGoals {
		description := sub.Description
		m.Goals = append(m.Goals, newGoal(uuid.NewString(), GoalInput{
			MetaGoalID:   &m.ID,
			GoalType:     sub.GoalType,
			TargetValue:  sub.TargetValue,
			CurrentValue: 0,
			Period:       sub.Period,
			MetricName:   nil,
			Description:  &description,
		}, createdAt))
	}
	if err = s.repo.metaGoals.Create(ctx, m); err != nil {
		return MetaGoal{}, fmt.Errorf("create generated meta goal: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "stored generated goals",
		slog.String("meta_goal_id", m.ID),
		slog.Int("sub_goals", len(m.Goals)),
		slog.String("main_focus", generated.MainFocus))
	return m, nil
}
