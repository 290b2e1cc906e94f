package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"megamillions/config"
	"megamillions/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"
)

// healthTimeout bounds the database ping behind /health
const healthTimeout = 2 * time.Second

// ResultsReader serves rows of published results tables
type ResultsReader interface {
	List(ctx context.Context, tableName string) ([]models.Row, error)
	Get(ctx context.Context, tableName string, id int64) ([]models.Row, error)
}

// HealthChecker reports whether the results store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RequestMetrics records served requests
type RequestMetrics interface {
	RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// Server is the read only results API
type Server struct {
	results ResultsReader
	health  HealthChecker
	metrics RequestMetrics
	router  chi.Router
}

// New creates the API server and its routes
func New(results ResultsReader, health HealthChecker, metrics RequestMetrics) *Server {
	s := &Server{
		results: results,
		health:  health,
		metrics: metrics,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(s.requestMetrics)
	router.Use(middleware.Recoverer)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, Error("not found", http.StatusNotFound))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, Error("method not allowed", http.StatusMethodNotAllowed))
	})

	router.Get("/health", s.handleHealth)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/{table}", s.handleList)
		r.Get("/{table}/{id:[0-9]+}", s.handleGet)
	})

	s.router = router
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer wraps a handler in an http.Server with the configured timeouts
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTPTimeout,
		ReadTimeout:       cfg.HTTPTimeout,
		WriteTimeout:      cfg.HTTPTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	rows, err := s.results.List(r.Context(), table)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, rows)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		// All digits but past int64; no such row can exist
		render.JSON(w, r, []models.Row{})
		return
	}

	rows, err := s.results.Get(r.Context(), table, id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, rows)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		log.WithError(err).Warn("Health check failed")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, Error("database unavailable", http.StatusServiceUnavailable))
		return
	}

	render.JSON(w, r, OK())
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := mapError(err)

	log.WithError(err).WithFields(log.Fields{
		"path":       r.URL.Path,
		"status":     resp.Status,
		"request_id": middleware.GetReqID(r.Context()),
	}).Error("Failed to serve results")

	render.Status(r, resp.Status)
	render.JSON(w, r, resp)
}
