package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/offerlens/internal/domain/cohort"
)

// CohortsDependencies defines the cohort query operation.
type CohortsDependencies interface {
	Cohorts(ctx context.Context, q cohort.Query) (cohort.Report, error)
}

// CohortsHandler handles cohort exploration requests.
type CohortsHandler struct {
	deps CohortsDependencies
}

// NewCohortsHandler creates a new cohorts handler.
func NewCohortsHandler(deps CohortsDependencies) *CohortsHandler {
	return &CohortsHandler{deps: deps}
}

// HandleGetCohorts handles GET /cohorts?keys=a,b&metric=m&condition=c&top=N
// requests.
func (h *CohortsHandler) HandleGetCohorts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top, err := queryInt(q, "top", cohort.DefaultTop)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	query := cohort.Query{
		Keys:      queryList(q, "keys"),
		Metric:    q.Get("metric"),
		Condition: q.Get("condition"),
		Top:       top,
	}

	rep, err := h.deps.Cohorts(r.Context(), query)
	if err != nil {
		if errors.Is(err, cohort.ErrBadPredicate) {
			writeError(w, http.StatusBadRequest, "bad_predicate", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
