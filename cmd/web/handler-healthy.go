package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/pedalcoach/internal/errors"
)

type healthResponse struct {
	Status string `json:"status"`
	Schema string `json:"schema,omitempty"`
}

// healthy reports whether the server can reach its database.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	schema, err := app.training.Health(r.Context())
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "health check failed", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Schema: ""})
		return
	}
	app.writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok", Schema: schema})
}
