package main

import (
	"net/http"
	"time"

	"github.com/myrjola/pedalcoach/internal/training"
)

type activitiesRequest struct {
	Activities []training.Activity `json:"activities"`
}

type generateGoalsRequest struct {
	Description string              `json:"description"`
	TargetDate  string              `json:"target_date"`
	Activities  []training.Activity `json:"activities"`
}

func (app *application) goalsGET(w http.ResponseWriter, r *http.Request) {
	goals, err := app.training.ListGoals(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, goals)
}

func (app *application) goalsPOST(w http.ResponseWriter, r *http.Request) {
	var in training.GoalInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	goal, err := app.training.CreateGoal(r.Context(), in)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, goal)
}

func (app *application) goalPUT(w http.ResponseWriter, r *http.Request) {
	var in training.GoalInput
	if !app.decodeJSON(w, r, &in) {
		return
	}
	goal, err := app.training.UpdateGoal(r.Context(), r.PathValue("id"), in)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, goal)
}

func (app *application) goalDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.training.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) goalProgressPOST(w http.ResponseWriter, r *http.Request) {
	var req activitiesRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	report, err := app.training.SyncGoalProgress(r.Context(), req.Activities)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, report)
}

func (app *application) goalGeneratePOST(w http.ResponseWriter, r *http.Request) {
	var req generateGoalsRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	targetDate, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	metaGoal, err := app.training.GenerateGoals(r.Context(), training.GoalRequest{
		Description: req.Description,
		TargetDate:  targetDate,
		Activities:  req.Activities,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, metaGoal)
}

// parseOptionalDate parses a YYYY-MM-DD date. An empty value is no date.
func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // no date given.
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, &training.ValidationError{Field: field, Message: "must be a YYYY-MM-DD date", Err: training.ErrInvalid}
	}
	return &date, nil
}
