package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		public = func(next http.Handler) http.Handler {
			return app.timeout(defaultTimeout)(next)
		}
		user = func(next http.Handler) http.Handler {
			return app.authenticate(app.timeout(defaultTimeout)(next))
		}
		slowUser = func(next http.Handler) http.Handler {
			return app.authenticate(app.timeout(plannerTimeout)(next))
		}
	)

	mux.Handle("GET /api/healthy", public(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /api/training-types", public(http.HandlerFunc(app.trainingTypesGET)))

	mux.Handle("GET /api/profile", user(http.HandlerFunc(app.profileGET)))
	mux.Handle("PUT /api/profile", user(http.HandlerFunc(app.profilePUT)))

	mux.Handle("GET /api/goals", user(http.HandlerFunc(app.goalsGET)))
	mux.Handle("POST /api/goals", user(http.HandlerFunc(app.goalsPOST)))
	mux.Handle("PUT /api/goals/{id}", user(http.HandlerFunc(app.goalPUT)))
	mux.Handle("DELETE /api/goals/{id}", user(http.HandlerFunc(app.goalDELETE)))
	mux.Handle("POST /api/goals/progress", user(http.HandlerFunc(app.goalProgressPOST)))
	mux.Handle("POST /api/goals/generate", slowUser(http.HandlerFunc(app.goalGeneratePOST)))

	mux.Handle("GET /api/meta-goals", user(http.HandlerFunc(app.metaGoalsGET)))
	mux.Handle("POST /api/meta-goals", user(http.HandlerFunc(app.metaGoalsPOST)))
	mux.Handle("POST /api/meta-goals/{id}/complete", user(http.HandlerFunc(app.metaGoalCompletePOST)))
	mux.Handle("DELETE /api/meta-goals/{id}", user(http.HandlerFunc(app.metaGoalDELETE)))

	mux.Handle("POST /api/weekly-plan", user(http.HandlerFunc(app.weeklyPlanPOST)))

	mux.Handle("GET /api/custom-trainings", user(http.HandlerFunc(app.customTrainingsGET)))
	mux.Handle("PUT /api/custom-trainings/{day}", user(http.HandlerFunc(app.customTrainingPUT)))
	mux.Handle("DELETE /api/custom-trainings/{day}", user(http.HandlerFunc(app.customTrainingDELETE)))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.writeError(w, r, http.StatusNotFound, "not found")
	}))

	return app.recoverPanic(app.logAndTraceRequest(secureHeaders(noCache(mux))))
}
