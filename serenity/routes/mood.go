package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenity/serenity/controllers"
	"serenity/serenity/middlewares"
	"serenity/serenity/utils/types"
)

func MoodRoutes(ctrl *controllers.ActivityController) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.IdentityMiddleware())

	// POST /mood/ : record a mood check-in
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.UserID(r)
		var req types.MoodRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		activity, err := ctrl.LogMood(r.Context(), userID, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(activity)
	})

	return r
}
