// Package api serves the published results of the last pipeline run.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/offerlens/internal/adapters/http/swagger"
	"github.com/okian/offerlens/internal/adapters/repository"
	"github.com/okian/offerlens/internal/domain/cohort"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Customer returns the published record of one customer.
	// Returns repository.ErrNotFound for unknown customers.
	Customer(ctx context.Context, customerID string) (repository.CustomerRecord, error)

	// Customers returns a page of records ordered by customer id.
	Customers(ctx context.Context, offset, limit int) ([]repository.CustomerRecord, error)

	// Count returns the number of published customers.
	Count(ctx context.Context) int

	// Cohorts runs a cohort query over the published feature table.
	Cohorts(ctx context.Context, q cohort.Query) (cohort.Report, error)

	// MaxCustomerLimit is the largest accepted page size.
	MaxCustomerLimit() int
}

// Server wires HTTP routes for the results API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	customersHandler *CustomersHandler
	cohortsHandler   *CohortsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		customersHandler: NewCustomersHandler(deps, deps.MaxCustomerLimit()),
		cohortsHandler:   NewCohortsHandler(deps),
	}
}

// Routes attaches all HTTP routes to r.
func (s *Server) Routes(r chi.Router) {
	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.With(MetricsMiddleware("metrics")).Get("/metrics", s.healthHandler.HandleMetrics)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)
	r.Route("/customers", func(r chi.Router) {
		r.Use(MetricsMiddleware("customers"))
		r.Get("/", s.customersHandler.HandleListCustomers)
		r.Get("/{id}", s.customersHandler.HandleGetCustomer)
	})
	r.With(MetricsMiddleware("cohorts")).Get("/cohorts", s.cohortsHandler.HandleGetCohorts)
}

// Handler returns a router serving every route plus the API docs.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	s.Routes(r)
	swagger.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
