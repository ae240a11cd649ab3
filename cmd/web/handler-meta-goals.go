package main

import (
	"net/http"

	"github.com/myrjola/pedalcoach/internal/training"
)

type metaGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetDate  string `json:"target_date"`
}

func (app *application) metaGoalsGET(w http.ResponseWriter, r *http.Request) {
	metaGoals, err := app.training.ListMetaGoals(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, metaGoals)
}

func (app *application) metaGoalsPOST(w http.ResponseWriter, r *http.Request) {
	var req metaGoalRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	targetDate, err := parseOptionalDate("target_date", req.TargetDate)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	metaGoal, err := app.training.CreateMetaGoal(r.Context(), training.MetaGoalInput{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  targetDate,
	})
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, metaGoal)
}

func (app *application) metaGoalCompletePOST(w http.ResponseWriter, r *http.Request) {
	if err := app.training.CompleteMetaGoal(r.Context(), r.PathValue("id")); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) metaGoalDELETE(w http.ResponseWriter, r *http.Request) {
	if err := app.training.DeleteMetaGoal(r.Context(), r.PathValue("id")); err != nil {
		app.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
