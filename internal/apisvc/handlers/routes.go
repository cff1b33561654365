package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router, metrics http.Handler) {
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})

		r.Get("/cards/search", h.SearchCards)
		r.Get("/import/status", h.ImportStatusHandler)

		// Secure routes
		r.Route("/protected-route", func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(h.Authenticator)

			r.Get("/login-token", h.LoginToken)
		})
	})
}
