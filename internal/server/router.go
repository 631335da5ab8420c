package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/versync/internal/server/handlers"
	"github.com/agentstation/versync/internal/server/middleware"
	"github.com/agentstation/versync/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()
	s.applyMiddleware(r)

	h := handlers.New(s.client, s.logger, s.config.Version, s.config.MaxBodyBytes)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, "Route not found", req.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.MethodNotAllowed(w, req.Method)
	})

	r.Get("/health", h.HandleHealth)
	if s.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	api := func(r chi.Router) {
		r.Post("/reconcile", h.HandleReconcile)
		r.Get("/lookup", h.HandleLookup)
	}
	if prefix := s.prefix(); prefix != "/" {
		r.Route(prefix, func(r chi.Router) {
			r.Get("/health", h.HandleHealth)
			api(r)
		})
	} else {
		r.Group(api)
	}

	return r
}

// applyMiddleware installs the middleware chain. Order matters: request
// IDs first so the logger can carry them, recovery outermost of the rest.
func (s *Server) applyMiddleware(r chi.Router) {
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))

	if s.config.CORSEnabled {
		cors := middleware.DefaultCORSConfig()
		if len(s.config.CORSOrigins) > 0 {
			cors.AllowedOrigins = s.config.CORSOrigins
		} else {
			cors.AllowAll = true
		}
		if s.config.AuthHeader != "" {
			cors.AllowedHeaders = append(cors.AllowedHeaders, s.config.AuthHeader)
		}
		r.Use(middleware.CORS(cors))
	}

	if s.config.AuthEnabled {
		auth := middleware.DefaultAuthConfig()
		auth.Enabled = true
		auth.APIKey = s.config.APIKey
		if s.config.AuthHeader != "" {
			auth.HeaderName = s.config.AuthHeader
		}
		auth.PublicPaths = append(auth.PublicPaths, s.prefix()+"/health")
		r.Use(middleware.Auth(auth, s.logger))
	}

	if s.limiter != nil {
		r.Use(middleware.RateLimit(s.limiter))
	}
}

func (s *Server) prefix() string {
	p := s.config.PathPrefix
	if p == "" || p == "/" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}
