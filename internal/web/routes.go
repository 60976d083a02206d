package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/RishabhDotasara/Photoflow/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	projectsHandler := handlers.NewProjectsHandler(s.config, s.deps.Projects, s.deps.Images, s.deps.Store)
	analyzeHandler := handlers.NewAnalyzeHandler(s.deps.Projects, s.deps.Tasks, s.deps.Worker, s.deps.Tracker)
	guestHandler := handlers.NewGuestHandler(s.config, s.deps.Detector, s.deps.Engine, s.deps.Store)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects", projectsHandler.List)
		r.Post("/projects", projectsHandler.Create)
		r.Get("/projects/{id}", projectsHandler.Get)
		r.Put("/projects/{id}/folder", projectsHandler.SetFolder)

		r.Post("/projects/{id}/analyze", analyzeHandler.Start)
		r.Post("/projects/{id}/resync", analyzeHandler.Start)
		r.Get("/projects/{id}/progress", analyzeHandler.Progress)

		r.Get("/tasks/{id}", analyzeHandler.GetTask)

		r.Post("/guest/selfie", guestHandler.Selfie)
	})
}
