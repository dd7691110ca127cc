package server

import "github.com/go-chi/chi/v5"

// routes wires the workflow store endpoints.
func (s *Server) routes(r chi.Router) {
	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.listWorkflows)
		r.Post("/", s.createWorkflow)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getWorkflow)
			r.Put("/", s.updateWorkflow)
			r.Delete("/", s.deleteWorkflow)
		})
	})
}
