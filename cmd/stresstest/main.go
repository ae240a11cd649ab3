package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/pedalcoach/internal/e2etest"
	"github.com/myrjola/pedalcoach/internal/logging"
	"github.com/myrjola/pedalcoach/internal/testhelpers"
	"github.com/myrjola/pedalcoach/internal/training"
	"golang.org/x/sync/errgroup"
)

const (
	testTimeout             = 10 * time.Second
	setupTimeout            = 30 * time.Second
	scenarioTimeout         = 30 * time.Second
	maxConcurrentSetups     = 10
	maxConcurrentOperations = 20
	requestsPerUser         = 8
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	rideHistoryWeeks        = 26 // 6 months of rides
	ridesPerWeek            = 3
	daysPerWeek             = 7
	firstUserID             = 1000
)

// User is a load test participant with a prepared ride history.
type User struct {
	Client     *e2etest.Client
	UserID     int
	Activities []training.Activity
}

// SmokeTest checks the basic goal and plan round trip for one user.
func SmokeTest(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	var types []training.TrainingType
	if err := client.GetJSON(ctx, "/api/training-types", &types); err != nil {
		return fmt.Errorf("get training types: %w", err)
	}
	var view training.WeeklyPlanView
	if err := client.SendJSON(ctx, http.MethodPost, "/api/weekly-plan", nil, &view); err != nil {
		return fmt.Errorf("get weekly plan: %w", err)
	}
	if view.Plan == nil && view.Message != training.NoGoalsMessage {
		return fmt.Errorf("unexpected weekly plan response: %+v", view.PlanResult)
	}
	return nil
}

// rideHistory generates deterministic rides for the last rideHistoryWeeks weeks.
func rideHistory(userID int, now time.Time) []training.Activity {
	rng := rand.New(rand.NewPCG(uint64(userID), 0)) //nolint:gosec // reproducible load, not security.
	activities := make([]training.Activity, 0, rideHistoryWeeks*ridesPerWeek)
	for week := range rideHistoryWeeks {
		for ride := range ridesPerWeek {
			start := now.AddDate(0, 0, -week*daysPerWeek-ride*2-1)
			distance := 20000 + rng.Float64()*80000 //nolint:mnd // 20 to 100 km.
			speed := 6 + rng.Float64()*4           //nolint:mnd // 6 to 10 m/s.
			activities = append(activities, training.Activity{
				ID:                 int64(userID*10000 + week*ridesPerWeek + ride),
				Name:               fmt.Sprintf("Ride %d.%d", week, ride),
				Type:               "Ride",
				WorkoutType:        nil,
				StartDate:          start,
				Distance:           distance,
				MovingTime:         distance / speed,
				TotalElevationGain: rng.Float64() * 1200, //nolint:mnd // up to 1200 m.
				AverageSpeed:       speed,
				MaxSpeed:           speed * 1.8, //nolint:mnd // sprint finish.
				AverageHeartrate:   nil,
				AverageCadence:     nil,
			})
		}
	}
	return activities
}

// SetupUser stores a profile and goals for one user.
func SetupUser(ctx context.Context, user *User) error {
	profile := training.DefaultProfile()
	profile.WorkoutsPerWeek = 3 + user.UserID%4 //nolint:mnd // 3 to 6 workouts.
	if err := user.Client.SendJSON(ctx, http.MethodPut, "/api/profile", profile, nil); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	goals := []map[string]any{
		{"goal_type": "distance", "target_value": 800, "period": "4w"},
		{"goal_type": "elevation", "target_value": 30000, "period": "3m"},
		{"goal_type": "long_rides", "target_value": 20, "period": "year"},
	}
	for _, g := range goals {
		if err := user.Client.SendJSON(ctx, http.MethodPost, "/api/goals", g, nil); err != nil {
			return fmt.Errorf("create %s goal: %w", g["goal_type"], err)
		}
	}
	return nil
}

// SetupUsers prepares numUsers users concurrently.
func SetupUsers(ctx context.Context, client *e2etest.Client, numUsers int, logger *slog.Logger) ([]*User, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting user setup", slog.Int("num_users", numUsers))

	now := time.Now()
	users := make([]*User, numUsers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSetups)
	for i := range numUsers {
		userID := firstUserID + i
		users[i] = &User{
			Client:     client.AsUser(userID),
			UserID:     userID,
			Activities: rideHistory(userID, now),
		}
		g.Go(func() error {
			setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
			defer cancel()
			if err := SetupUser(setupCtx, users[i]); err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("setup users: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All users set up", slog.Int("total_users", numUsers))
	return users, nil
}

// PlanScenario fires concurrent weekly plan requests for one user. Every response must carry the same goals hash and
// the same day assignments, no matter which request computed the plan.
func PlanScenario(ctx context.Context, user *User) error {
	body := map[string]any{"activities": user.Activities}
	views := make([]training.WeeklyPlanView, requestsPerUser)
	g, ctx := errgroup.WithContext(ctx)
	for i := range requestsPerUser {
		g.Go(func() error {
			return user.Client.SendJSON(ctx, http.MethodPost, "/api/weekly-plan", body, &views[i])
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("weekly plan: %w", err)
	}

	first := views[0]
	if first.Plan == nil {
		return fmt.Errorf("no plan: %s", first.Message)
	}
	for _, v := range views[1:] {
		if v.GoalsHash != first.GoalsHash {
			return fmt.Errorf("goals hash %s differs from %s", v.GoalsHash, first.GoalsHash)
		}
		for i, day := range v.Plan.Days {
			if day != first.Plan.Days[i] {
				return fmt.Errorf("%s assigned %+v and %+v", day.Day, day, first.Plan.Days[i])
			}
		}
	}
	return nil
}

// RunLoadTest runs PlanScenario for every user.
func RunLoadTest(ctx context.Context, users []*User, logger *slog.Logger) error {
	userCount := len(users)
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_users", userCount))

	var successCount, failureCount int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for _, user := range users {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := PlanScenario(scenarioCtx, user); err != nil {
				atomic.AddInt64(&failureCount, 1)
				// Log individual failures but don't stop the entire test
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("user_id", user.UserID),
					slog.Any("error", err))
				return nil
			}

			atomic.AddInt64(&successCount, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount) / float64(userCount) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount),
		slog.Int64("failed", failureCount),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}

	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		numUsers = 10
		start    = time.Now()
	)

	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	logger.LogAttrs(ctx, slog.LevelInfo, "Running smoke test first...")
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}
	client := e2etest.NewClient(url, e2etest.DefaultUserHeader, firstUserID-1)

	if err := client.WaitForReady(ctx, e2etest.HealthPath); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err := SmokeTest(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test passed")

	setupStart := time.Now()
	users, err := SetupUsers(ctx, client, numUsers, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to setup users", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "User setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)),
		slog.Int("users", len(users)))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, users, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("users_tested", len(users)))
}
