package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"serenity/serenity/controllers"
	"serenity/serenity/middlewares"
	"serenity/serenity/utils/types"
)

func ActivityRoutes(ctrl *controllers.ActivityController) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.IdentityMiddleware())

	// POST /activities/ : log one activity
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.UserID(r)
		var req types.ActivityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		activity, created, err := ctrl.LogActivity(r.Context(), userID, req)
		if err != nil {
			if errors.Is(err, controllers.ErrInvalidActivityType) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if created {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(activity)
	})

	// GET /activities/today : activities since midnight
	r.Get("/today", func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.UserID(r)
		activities, err := ctrl.TodayActivities(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(activities)
	})

	// GET /activities/ : full history
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.UserID(r)
		activities, err := ctrl.History(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(activities)
	})

	// GET /activities/recommendations : newest stored recommendation batch
	r.Get("/recommendations", func(w http.ResponseWriter, r *http.Request) {
		userID := middlewares.UserID(r)
		recs, err := ctrl.LatestRecommendations(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "no recommendations yet", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(recs)
	})

	return r
}
