package main

import (
	"net/http"
)

func (app *application) trainingTypesGET(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, app.training.TrainingTypes())
}
