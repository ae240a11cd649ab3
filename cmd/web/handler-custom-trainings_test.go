package main

import (
	"net/http"
	"testing"

	"github.com/myrjola/pedalcoach/internal/e2etest"
	"github.com/myrjola/pedalcoach/internal/training"
)

func Test_application_customTrainings(t *testing.T) {
	var (
		ctx       = t.Context()
		server    = startTestServer(t)
		client    = server.Client()
		trainings []training.CustomTraining
	)

	body := map[string]any{
		"training_type":    "group_ride",
		"training_name":    "Saturday club ride",
		"training_details": map[string]any{"meeting_point": "harbour"},
		"training_parts":   []map[string]any{{"name": "Ride", "duration_minutes": 150}},
	}
	if err := client.SendJSON(ctx, http.MethodPut, "/api/custom-trainings/saturday", body, &trainings); err != nil {
		t.Fatalf("Failed to save custom training: %v", err)
	}
	if len(trainings) != 1 || trainings[0].Day != training.Saturday || len(trainings[0].Parts) != 1 {
		t.Fatalf("custom trainings = %+v", trainings)
	}

	// Overwriting keeps one override per day.
	body["training_name"] = "Gravel loop"
	if err := client.SendJSON(ctx, http.MethodPut, "/api/custom-trainings/saturday", body, &trainings); err != nil {
		t.Fatalf("Failed to save custom training: %v", err)
	}
	if len(trainings) != 1 || trainings[0].TrainingName != "Gravel loop" {
		t.Fatalf("custom trainings = %+v", trainings)
	}

	err := client.SendJSON(ctx, http.MethodPut, "/api/custom-trainings/someday", body, nil)
	if got := e2etest.StatusCode(err); got != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", got, http.StatusUnprocessableEntity)
	}

	if err = client.SendJSON(ctx, http.MethodDelete, "/api/custom-trainings/saturday", nil, nil); err != nil {
		t.Fatalf("Failed to delete custom training: %v", err)
	}
	err = client.SendJSON(ctx, http.MethodDelete, "/api/custom-trainings/saturday", nil, nil)
	if got := e2etest.StatusCode(err); got != http.StatusNotFound {
		t.Errorf("status = %d, want %d", got, http.StatusNotFound)
	}
}
