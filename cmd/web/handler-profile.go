package main

import (
	"net/http"

	"github.com/myrjola/pedalcoach/internal/training"
)

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.training.GetProfile(r.Context())
	if err != nil {
		app.handleError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, profile)
}

func (app *application) profilePUT(w http.ResponseWriter, r *http.Request) {
	var profile training.Profile
	if !app.decodeJSON(w, r, &profile) {
		return
	}
	if err := app.training.SaveProfile(r.Context(), profile); err != nil {
		app.handleError(w, r, err)
		return
	}
	app.profileGET(w, r)
}
