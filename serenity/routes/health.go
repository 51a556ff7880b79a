package routes

import (
	"serenity/serenity/controllers"

	"github.com/go-chi/chi/v5"
)

func HealthRoutes(ctrl *controllers.HealthController) chi.Router {
	r := chi.NewRouter()
	r.Get("/health", ctrl.HealthCheck)
	r.Get("/ready", ctrl.ReadyCheck)
	return r
}
