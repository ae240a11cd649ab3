package main

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/pedalcoach/internal/e2etest"
	"github.com/myrjola/pedalcoach/internal/ptr"
	"github.com/myrjola/pedalcoach/internal/training"
)

func Test_application_profile(t *testing.T) {
	var (
		ctx     = t.Context()
		server  = startTestServer(t)
		client  = server.Client()
		profile training.Profile
	)

	if err := client.GetJSON(ctx, "/api/profile", &profile); err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if diff := cmp.Diff(training.DefaultProfile(), profile); diff != "" {
		t.Errorf("default profile mismatch (-want +got):\n%s", diff)
	}

	want := training.Profile{
		ExperienceLevel:        training.ExperienceBeginner,
		WorkoutsPerWeek:        2,
		PreferredDays:          []training.DayKey{training.Sunday},
		PreferredTrainingTypes: []training.TrainingTypeID{training.Endurance},
		MaxHR:                  nil,
		RestingHR:              ptr.Ref(52),
		LactateThreshold:       nil,
		Age:                    ptr.Ref(61),
		WeightKg:               nil,
	}
	if err := client.SendJSON(ctx, http.MethodPut, "/api/profile", want, &profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}
	if diff := cmp.Diff(want, profile); diff != "" {
		t.Errorf("saved profile mismatch (-want +got):\n%s", diff)
	}

	want.WorkoutsPerWeek = 9
	err := client.SendJSON(ctx, http.MethodPut, "/api/profile", want, nil)
	var statusErr *e2etest.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("error = %v, want status %d", err, http.StatusUnprocessableEntity)
	}
	if statusErr.Message == "" {
		t.Error("validation error has no message")
	}
}
