package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     h.allowedOrigins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials:   true,
		OptionsPassthrough: false,
		MaxAge:             300,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", h.metricsHandler())

	r.Route("/auth", func(r chi.Router) {
		r.With(h.throttleLogin).Post("/login", h.login)
		r.Get("/logout", h.logout)
		r.Get("/refresh", h.refresh)
		r.Post("/register", h.register)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", h.listUsers)
		r.Get("/users/{id}", h.getUser)
		r.Get("/posts", h.listPosts)
		r.Get("/posts/{id}", h.getPost)
		r.Get("/posts/user/{id}", h.listUserPosts)
		r.Get("/comments", h.listComments)
		r.Get("/comments/{id}", h.getComment)
		r.Get("/comments/user/{id}", h.listUserComments)
		r.Get("/comments/parent/{id}", h.listChildComments)
		r.Get("/search/{query}", h.search)
		r.Get("/uploads/{id}", h.downloadUpload)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Put("/users/{id}", h.updateUser)
			r.Delete("/users/{id}", h.deleteUser)
			r.Post("/posts", h.createPost)
			r.Put("/posts/{id}", h.updatePost)
			r.Delete("/posts/{id}", h.deletePost)
			r.Put("/posts/like/{id}", h.likePost)
			r.Post("/comments", h.createComment)
			r.Put("/comments/{id}", h.updateComment)
			r.Delete("/comments/{id}", h.deleteComment)
			r.Put("/comments/like/{id}", h.likeComment)
			r.Post("/uploads", h.createUpload)
			r.Post("/uploads/{id}/complete", h.completeUpload)
		})
	})

	return r
}

func (h *Handler) metricsHandler() http.Handler {
	if h.Gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})
}
