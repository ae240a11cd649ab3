package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/myrjola/pedalcoach/internal/training"
)

type customTrainingRequest struct {
	TrainingType string                  `json:"training_type"`
	TrainingName string                  `json:"training_name"`
	Details      json.RawMessage         `json:"training_details"`
	Parts        []training.TrainingPart `json:"training_parts"`
}

func (app *application) customTrainingsGET(w http.ResponseWriter, r *http.Request) {
	trainings, err := app.training.ListCustomTrainings(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, trainings)
}

func (app *application) customTrainingPUT(w http.ResponseWriter, r *http.Request) {
	var req customTrainingRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	err := app.training.SaveCustomTraining(r.Context(), training.CustomTraining{
		Day:          training.DayKey(r.PathValue("day")),
		TrainingType: req.TrainingType,
		TrainingName: req.TrainingName,
		Details:      req.Details,
		Parts:        req.Parts,
		UpdatedAt:    time.Time{},
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.customTrainingsGET(w, r)
}

func (app *application) customTrainingDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.training.DeleteCustomTraining(r.Context(), training.DayKey(r.PathValue("day"))); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
