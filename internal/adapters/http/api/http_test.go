package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/okian/offerlens/internal/adapters/http/api"
	"github.com/okian/offerlens/internal/adapters/repository"
	"github.com/okian/offerlens/internal/domain/cohort"
	"github.com/okian/offerlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	records   []repository.CustomerRecord
	maxLimit  int
	lastQuery cohort.Query
	cohortErr error
	storeErr  error
}

func (m *mockDependencies) Customer(_ context.Context, id string) (repository.CustomerRecord, error) {
	if m.storeErr != nil {
		return repository.CustomerRecord{}, m.storeErr
	}
	for _, r := range m.records {
		if r.Features.CustomerID == id {
			return r, nil
		}
	}
	return repository.CustomerRecord{}, repository.ErrNotFound
}

func (m *mockDependencies) Customers(_ context.Context, offset, limit int) ([]repository.CustomerRecord, error) {
	if m.storeErr != nil {
		return nil, m.storeErr
	}
	if offset >= len(m.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[offset:end], nil
}

func (m *mockDependencies) Count(_ context.Context) int { return len(m.records) }

func (m *mockDependencies) Cohorts(_ context.Context, q cohort.Query) (cohort.Report, error) {
	m.lastQuery = q
	if m.cohortErr != nil {
		return cohort.Report{}, m.cohortErr
	}
	return cohort.Report{Query: q, Matched: 2, TotalGroups: 1, Groups: []cohort.Group{{Values: []string{"F"}, Count: 2}}}, nil
}

func (m *mockDependencies) MaxCustomerLimit() int { return m.maxLimit }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func record(id string) repository.CustomerRecord {
	return repository.CustomerRecord{
		Features: model.CustomerFeatures{CustomerStats: model.CustomerStats{CustomerID: id, Transactions: 1}},
	}
}

func newTestServer(deps *mockDependencies) http.Handler {
	stats := &mockStatsProvider{stats: map[string]interface{}{"customers": len(deps.records)}}
	return api.NewServer(deps, stats).Handler()
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server over three published customers", t, func() {
		deps := &mockDependencies{
			records:  []repository.CustomerRecord{record("a"), record("b"), record("c")},
			maxLimit: 2,
		}
		h := newTestServer(deps)

		Convey("Then healthz reports ok", func() {
			w := get(h, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then metrics are exposed in Prometheus format", func() {
			w := get(h, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats come from the stats provider", func() {
			w := get(h, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["customers"], ShouldEqual, float64(3))
		})

		Convey("Then the OpenAPI document is served", func() {
			w := get(h, "/openapi.yaml")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/cohorts")
		})

		Convey("Then unknown routes answer with a JSON 404", func() {
			w := get(h, "/leaderboard")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "not_found")
		})
	})
}

func TestCustomersHandler(t *testing.T) {
	Convey("Given a server over three published customers with a page cap of 2", t, func() {
		deps := &mockDependencies{
			records:  []repository.CustomerRecord{record("a"), record("b"), record("c")},
			maxLimit: 2,
		}
		h := newTestServer(deps)

		Convey("When listing without parameters", func() {
			w := get(h, "/customers")

			Convey("Then the first page uses the cap as the limit", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var page struct {
					Total     int                         `json:"total"`
					Limit     int                         `json:"limit"`
					Customers []repository.CustomerRecord `json:"customers"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(page.Total, ShouldEqual, 3)
				So(page.Limit, ShouldEqual, 2)
				So(len(page.Customers), ShouldEqual, 2)
			})
		})

		Convey("When listing past the end", func() {
			w := get(h, "/customers?offset=10&limit=1")

			Convey("Then an empty page is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"customers":[]`)
			})
		})

		Convey("When the limit exceeds the cap", func() {
			w := get(h, "/customers?limit=3")

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When paging parameters are malformed", func() {
			for _, target := range []string{"/customers?limit=0", "/customers?limit=x", "/customers?offset=-1"} {
				w := get(h, target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			}
		})

		Convey("When the store rejects the page", func() {
			deps.storeErr = fmt.Errorf("%w: offset=0", repository.ErrInvalidLimit)
			w := get(h, "/customers?limit=1")

			Convey("Then it is reported as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching a known customer", func() {
			w := get(h, "/customers/b")

			Convey("Then its record is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rec repository.CustomerRecord
				So(json.Unmarshal(w.Body.Bytes(), &rec), ShouldBeNil)
				So(rec.Features.Transactions, ShouldEqual, 1)
			})
		})

		Convey("When fetching an unknown customer", func() {
			w := get(h, "/customers/zz")

			Convey("Then a 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				body := decodeError(w)
				So(body.Code, ShouldEqual, "not_found")
				So(body.Message, ShouldEqual, repository.ErrNotFound.Error())
			})
		})

		Convey("When the store fails", func() {
			deps.storeErr = errors.New("boom")
			w := get(h, "/customers/a")

			Convey("Then a 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w).Code, ShouldEqual, "internal_error")
			})
		})
	})
}

func TestCohortsHandler(t *testing.T) {
	Convey("Given a server", t, func() {
		deps := &mockDependencies{maxLimit: 10}
		h := newTestServer(deps)

		Convey("When querying cohorts", func() {
			w := get(h, "/cohorts?keys=gender,%20age_range,&metric=responded_bogo&condition=%3E%3D1&top=5")

			Convey("Then the query is parsed and the report returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Keys, ShouldResemble, []string{"gender", "age_range"})
				So(deps.lastQuery.Metric, ShouldEqual, "responded_bogo")
				So(deps.lastQuery.Condition, ShouldEqual, ">=1")
				So(deps.lastQuery.Top, ShouldEqual, 5)

				var rep cohort.Report
				So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
				So(rep.Matched, ShouldEqual, 2)
			})
		})

		Convey("When top is omitted", func() {
			w := get(h, "/cohorts?keys=gender&metric=age&condition=%3E1")

			Convey("Then the default top is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery.Top, ShouldEqual, cohort.DefaultTop)
			})
		})

		Convey("When the predicate is unusable", func() {
			deps.cohortErr = fmt.Errorf("%w: unknown metric", cohort.ErrBadPredicate)
			w := get(h, "/cohorts?keys=gender&metric=nope&condition=%3E1")

			Convey("Then a 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_predicate")
			})
		})

		Convey("When top is malformed", func() {
			w := get(h, "/cohorts?keys=gender&top=abc")

			Convey("Then a 400 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
