package main

import (
	"net/http"
)

// weeklyPlanPOST returns the current week's plan. The optional body carries the activities to sync first.
func (app *application) weeklyPlanPOST(w http.ResponseWriter, r *http.Request) {
	var req activitiesRequest
	if !app.decodeOptionalJSON(w, r, &req) {
		return
	}
	view, err := app.training.WeeklyPlan(r.Context(), req.Activities)
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, view)
}
