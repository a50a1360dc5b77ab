package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/metrics"
	"github.com/unclebandit/crm-backend/internal/middleware"
	"github.com/unclebandit/crm-backend/internal/repository"
)

type routes struct {
	Controller *controller.CampaignController
	Handler    *handler.CampaignHandler
	JWTSecret  []byte
	Users      repository.UserRepositoryInterface
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Campaign routes, admin only
	r.Route("/campaigns", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.JWTSecret, rt.Users))
		r.Use(middleware.RequireRole("admin"))

		r.Post("/", rt.Controller.CreateCampaign)
		r.Get("/", rt.Controller.ListCampaigns)
		r.Get("/{id}", rt.Handler.GetCampaignHandlerWithStats)
		r.Get("/{id}/stats", rt.Handler.GetCampaignStats)
		r.Put("/{id}", rt.Controller.UpdateCampaign)
		r.Delete("/{id}", rt.Controller.DeleteCampaign)
		r.Post("/start/{id}", rt.Controller.StartCampaign)
		r.Post("/send-test-mail/{id}", rt.Controller.SendTestEmail)
	})

	return r
}
