package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

// GoalRequest is what the user asks the goal planner for.
type GoalRequest struct {
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Activities  []Activity `json:"activities"`
}

// ActivityStats summarise recent riding for the goal planner.
type ActivityStats struct {
	Rides            int     `json:"rides"`
	DistanceKm       float64 `json:"distance_km"`
	Hours            float64 `json:"hours"`
	ElevationM       float64 `json:"elevation_m"`
	LongRides        int     `json:"long_rides"`
	IntervalSessions int     `json:"interval_sessions"`
}

// GoalPlannerInput is sent to the goal planner.
type GoalPlannerInput struct {
	Description string        `json:"description"`
	TargetDate  string        `json:"target_date,omitempty"`
	Profile     Profile       `json:"profile"`
	Stats       ActivityStats `json:"stats_last_4_weeks"`
}

// GeneratedGoal is one sub-goal suggested by the goal planner.
type GeneratedGoal struct {
	GoalType    GoalType `json:"goal_type"`
	TargetValue float64  `json:"target_value"`
	Period      Period   `json:"period"`
	Description string   `json:"description"`
}

// GeneratedMetaGoal is the objective suggested by the goal planner.
type GeneratedMetaGoal struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GeneratedGoals is the goal planner's answer.
type GeneratedGoals struct {
	MetaGoal  GeneratedMetaGoal `json:"meta_goal"`
	SubGoals  []GeneratedGoal   `json:"sub_goals"`
	Timeline  string            `json:"timeline"`
	MainFocus string            `json:"main_focus"`
}

// GoalPlanner turns a free-text objective into a meta goal with measurable sub-goals.
type GoalPlanner interface {
	PlanGoals(ctx context.Context, in GoalPlannerInput) (GeneratedGoals, error)
}

// recentStats folds the last four weeks of activities with the same calculator used for goals.
func recentStats(activities []Activity, now time.Time) ActivityStats {
	stat := func(goalType GoalType) Progress {
		g := Goal{
			ID:           string(goalType),
			MetaGoalID:   nil,
			GoalType:     goalType,
			TargetValue:  0,
			CurrentValue: 0,
			Period:       Period4Weeks,
			MetricName:   nil,
			Description:  nil,
			CreatedAt:    now,
		}
		return ComputeProgress(g, activities, nil, now)
	}
	return ActivityStats{
		Rides:            len(inPeriod(activities, Period4Weeks, now)),
		DistanceKm:       stat(GoalTypeDistance).Value,
		Hours:            stat(GoalTypeTime).Value,
		ElevationM:       stat(GoalTypeElevation).Value,
		LongRides:        int(stat(GoalTypeLongRides).Value),
		IntervalSessions: stat(GoalTypeIntervals).Intervals,
	}
}

// openAIGoalPlanner implements GoalPlanner with OpenAI structured outputs.
type openAIGoalPlanner struct {
	client  openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Requests to the model are throttled process wide.
const (
	plannerRequestsPerMinute = 10
	plannerBurst             = 2
)

// NewOpenAIGoalPlanner creates a GoalPlanner backed by the OpenAI API.
func NewOpenAIGoalPlanner(apiKey string, logger *slog.Logger) GoalPlanner {
	return &openAIGoalPlanner{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		limiter: rate.NewLimiter(rate.Every(time.Minute/plannerRequestsPerMinute), plannerBurst),
		logger:  logger,
	}
}

const goalPlannerPrompt = `You are a cycling coach. Turn the rider's objective into one meta goal with two to five
measurable sub-goals. Use only the allowed goal types and periods. Never use the same goal type and period twice.
Units: distance in km, elevation in m, time in hours, speeds in km/h, long_rides and intervals as counts, pulse in
bpm, cadence in rpm, ftp in watts, weight in kg.`

func (p *openAIGoalPlanner) PlanGoals(ctx context.Context, in GoalPlannerInput) (GeneratedGoals, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return GeneratedGoals{}, fmt.Errorf("wait for rate limiter: %w", err)
	}

	input, err := json.Marshal(in)
	if err != nil {
		return GeneratedGoals{}, fmt.Errorf("marshal planner input: %w", err)
	}

	start := time.Now()
	chat, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(goalPlannerPrompt),
			openai.UserMessage(string(input)),
		},
		Model: openai.ChatModelGPT4o,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "cycling_goals",
					Description: openai.String("A cycling meta goal with measurable sub-goals"),
					Schema:      generatedGoalsSchema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return GeneratedGoals{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return GeneratedGoals{}, errors.New("chat completion returned no choices")
	}

	var generated GeneratedGoals
	if err = json.Unmarshal([]byte(chat.Choices[0].Message.Content), &generated); err != nil {
		return GeneratedGoals{}, fmt.Errorf("unmarshal generated goals: %w", err)
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "generated goals",
		slog.Duration("duration", time.Since(start)),
		slog.Int("sub_goals", len(generated.SubGoals)),
		slog.Int64("total_tokens", chat.Usage.TotalTokens))
	return generated, nil
}

// generatedGoalsSchema is the strict JSON schema of GeneratedGoals.
func generatedGoalsSchema() map[string]any {
	goalTypes := make([]string, 0, len(goalTypeRegistry))
	for _, t := range GoalTypes() {
		goalTypes = append(goalTypes, string(t))
	}
	str := func(description string) map[string]any {
		return map[string]any{"type": "string", "description": description}
	}
	object := func(properties map[string]any) map[string]any {
		required := make([]string, 0, len(properties))
		for name := range properties {
			required = append(required, name)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		}
	}
	return object(map[string]any{
		"meta_goal": object(map[string]any{
			"title":       str("Short title of the objective"),
			"description": str("What achieving the objective means"),
		}),
		"sub_goals": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"goal_type":    map[string]any{"type": "string", "enum": goalTypes},
				"target_value": map[string]any{"type": "number"},
				"period": map[string]any{
					"type": "string",
					"enum": []string{string(Period4Weeks), string(Period3Months), string(PeriodYear)},
				},
				"description": str("Why this sub-goal supports the objective"),
			}),
		},
		"timeline":   str("Rough timeline towards the objective"),
		"main_focus": str("The single most important focus"),
	})
}

// validateGeneratedGoals rejects answers with unusable or duplicate sub-goals.
func validateGeneratedGoals(g GeneratedGoals) error {
	if strings.TrimSpace(g.MetaGoal.Title) == "" {
		return invalid("meta_goal", "generated meta goal has no title")
	}
	if len(g.SubGoals) == 0 {
		return invalid("sub_goals", "no sub-goals generated")
	}
	goals := make([]Goal, 0, len(g.SubGoals))
	for i, sub := range g.SubGoals {
		in := GoalInput{
			MetaGoalID:   nil,
			GoalType:     sub.GoalType,
			TargetValue:  sub.TargetValue,
			CurrentValue: 0,
			Period:       sub.Period,
			MetricName:   nil,
			Description:  nil,
		}
		if err := in.validate(); err != nil {
			return err
		}
		goals = append(goals, newGoal(fmt.Sprintf("sub-goal-%d", i), in, time.Time{}))
	}
	return checkDuplicateGoals(goals)
}
