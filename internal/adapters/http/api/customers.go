package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/offerlens/internal/adapters/repository"
)

// CustomersDependencies defines the read operations on published customers.
type CustomersDependencies interface {
	Customer(ctx context.Context, customerID string) (repository.CustomerRecord, error)
	Customers(ctx context.Context, offset, limit int) ([]repository.CustomerRecord, error)
	Count(ctx context.Context) int
}

// CustomersHandler handles customer requests.
type CustomersHandler struct {
	deps     CustomersDependencies
	maxLimit int
}

// NewCustomersHandler creates a new customers handler. maxLimit is both the
// cap and the default page size.
func NewCustomersHandler(deps CustomersDependencies, maxLimit int) *CustomersHandler {
	return &CustomersHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type customersPage struct {
	Total     int                         `json:"total"`
	Offset    int                         `json:"offset"`
	Limit     int                         `json:"limit"`
	Customers []repository.CustomerRecord `json:"customers"`
}

// HandleListCustomers handles GET /customers?offset=N&limit=M requests.
func (h *CustomersHandler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := queryInt(q, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit, err := queryInt(q, "limit", h.maxLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be positive", ErrBadRequest))
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: %d > %d", ErrLimitExceeded, limit, h.maxLimit))
		return
	}

	records, err := h.deps.Customers(r.Context(), offset, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if records == nil {
		records = []repository.CustomerRecord{}
	}
	writeJSON(w, http.StatusOK, customersPage{
		Total:     h.deps.Count(r.Context()),
		Offset:    offset,
		Limit:     limit,
		Customers: records,
	})
}

// HandleGetCustomer handles GET /customers/{id} requests.
func (h *CustomersHandler) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rec, err := h.deps.Customer(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
