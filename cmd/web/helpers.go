package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/pedalcoach/internal/errors"
	"github.com/myrjola/pedalcoach/internal/training"
)

// maxBodyBytes bounds request bodies. Activity batches of a year of rides fit comfortably.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeJSON(w, r, status, errorResponse{Error: message, Field: ""})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// handleError maps errors from the training service to responses. Unknown errors are logged as server errors.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *training.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error: validationErr.Error(),
			Field: validationErr.Field,
		})
	case errors.Is(err, training.ErrNotFound):
		app.writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, training.ErrPlannerUnavailable):
		app.writeError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		app.serverError(w, r, err)
	}
}

// decodeJSON decodes the request body into dst. It writes a 400 response and returns false when the body is not
// valid JSON for dst.
func (app *application) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return app.decodeBody(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where an empty body is allowed. Chunked requests carry no content
// length, so emptiness is detected by the decoder.
func (app *application) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return app.decodeBody(w, r, dst, true)
}

func (app *application) decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "bad request body", slog.Any("error", err))
	app.writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
	return false
}
