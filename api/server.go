/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer connecting URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/auth/*                   Signup, login, password reset
  /api/courses                  Public course listing
  /api/students/{id}/courses    A student's enrollments and waitlists
  /api/enrollments, /api/drops  Enroll and drop operations
  /api/admin/*                  Admin operations, gated by Authorizer
                                (X-Admin-Credential header)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Credential"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/reset", h.ResetPassword)
		})

		// Student-facing routes
		r.Get("/courses", h.ListCourses)
		r.Get("/students/{id}/courses", h.MyCourses)
		r.Post("/enrollments", h.Enroll)
		r.Post("/drops", h.Drop)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/courses", h.CreateCourse)
			r.Put("/courses/{id}/seats", h.UpdateCourseSeats)
			r.Delete("/courses/{id}", h.DeleteCourse)
			r.Post("/courses/{id}/promote", h.Promote)
			r.Get("/courses/{id}/waitlist", h.ListWaitlist)
			r.Get("/courses/{id}/drops", h.DropHistory)
			r.Get("/reconcile", h.Reconcile)
		})
	})

	return r
}

// requireAdmin gates admin routes on the injected Authorizer.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Auth.Authorize(r.Context(), r.Header.Get("X-Admin-Credential")) {
			writeError(w, http.StatusForbidden, "admin credential required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
