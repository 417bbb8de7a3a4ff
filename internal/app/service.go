// Package service runs the attribution pipeline and serves its published
// results to the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/offerlens/internal/adapters/export"
	eventqueue "github.com/okian/offerlens/internal/adapters/mq/queue"
	workerpool "github.com/okian/offerlens/internal/adapters/mq/worker"
	"github.com/okian/offerlens/internal/adapters/repository"
	"github.com/okian/offerlens/internal/adapters/source"
	"github.com/okian/offerlens/internal/domain/aggregate"
	"github.com/okian/offerlens/internal/domain/attribution"
	"github.com/okian/offerlens/internal/domain/catalog"
	"github.com/okian/offerlens/internal/domain/cohort"
	"github.com/okian/offerlens/internal/domain/features"
	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/internal/domain/normalize"
	"github.com/okian/offerlens/pkg/logger"
	"github.com/okian/offerlens/pkg/metrics"
)

const enqueueRetryInterval = time.Millisecond

// Inputs are the three raw tables a run consumes.
type Inputs struct {
	Offers    []model.RawOffer
	Customers []model.RawCustomer
	Events    []model.RawEvent
}

// Paths locate the three input files.
type Paths struct {
	Portfolio  string
	Profile    string
	Transcript string
}

// RunSummary describes one pipeline run.
type RunSummary struct {
	RunID                  string                 `json:"run_id"`
	StartedAt              time.Time              `json:"started_at"`
	Duration               time.Duration          `json:"duration_ns"`
	TieBreak               attribution.TieBreak   `json:"tie_break"`
	Offers                 int                    `json:"offers"`
	Profiles               catalog.CustomerReport `json:"profiles"`
	Normalize              normalize.Report       `json:"normalize"`
	Partitions             int                    `json:"partitions"`
	Receipts               int                    `json:"receipts"`
	ReceiptsResponded      int                    `json:"receipts_responded"`
	Transactions           int                    `json:"transactions"`
	TransactionsAttributed int                    `json:"transactions_attributed"`
	Collisions             int                    `json:"collisions"`
	Customers              int                    `json:"customers"`
	Cohort                 *cohort.Report         `json:"cohort,omitempty"`
}

// Service runs the pipeline and exposes the last published run.
type Service struct {
	mu      sync.RWMutex
	running bool
	last    *RunSummary

	store    *repository.MemoryStore
	exporter *export.Exporter

	workerCount int
	queueSize   int
	maxAge      int
	maxLimit    int
	tieBreak    attribution.TieBreak
	cohortQuery *cohort.Query

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of attribution workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the partition queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxAge sets the profile age cut-off.
func WithMaxAge(age int) Option {
	return func(s *Service) {
		if age > 0 {
			s.maxAge = age
		}
	}
}

// WithMaxCustomerLimit caps the page size of Customers.
func WithMaxCustomerLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithTieBreak sets the equal-reward collision policy.
func WithTieBreak(tb attribution.TieBreak) Option {
	return func(s *Service) {
		if tb != "" {
			s.tieBreak = tb
		}
	}
}

// WithCohortQuery enables the cohort report produced after each run.
func WithCohortQuery(q cohort.Query) Option {
	return func(s *Service) {
		if len(q.Keys) > 0 {
			s.cohortQuery = &q
		}
	}
}

// WithExporter writes every run's outputs through e.
func WithExporter(e *export.Exporter) Option {
	return func(s *Service) {
		s.exporter = e
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		maxAge:      100,
		maxLimit:    100,
		tieBreak:    attribution.TieBreakInputOrder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.store = repository.NewMemoryStore(repository.WithMaxLimit(s.maxLimit))
	return s
}

// RunFiles loads the inputs from disk and runs the pipeline.
func (s *Service) RunFiles(ctx context.Context, p Paths) (RunSummary, error) {
	start := time.Now()
	offers, err := source.LoadOffers(ctx, p.Portfolio)
	if err != nil {
		return RunSummary{}, err
	}
	customers, err := source.LoadCustomers(ctx, p.Profile)
	if err != nil {
		return RunSummary{}, err
	}
	events, err := source.LoadEvents(ctx, p.Transcript)
	if err != nil {
		return RunSummary{}, err
	}
	metrics.RecordStageLatency("load", float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "inputs loaded",
		logger.Int("offers", len(offers)),
		logger.Int("profiles", len(customers)),
		logger.Int("events", len(events)),
	)
	return s.Run(ctx, Inputs{Offers: offers, Customers: customers, Events: events})
}

// Run executes the whole pipeline over in and publishes the result. Only one
// run may be active at a time.
func (s *Service) Run(ctx context.Context, in Inputs) (RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return RunSummary{}, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	sum, err := s.run(ctx, in)
	if err != nil {
		metrics.RecordRun("failure")
		metrics.RecordErrorByComponent("service", "run_failed")
		return RunSummary{}, err
	}
	metrics.RecordRun("success")
	metrics.UpdateLastRunCustomers(sum.Customers)

	s.mu.Lock()
	s.last = &sum
	s.mu.Unlock()
	return sum, nil
}

func (s *Service) run(ctx context.Context, in Inputs) (RunSummary, error) {
	sum := RunSummary{RunID: uuid.NewString(), StartedAt: time.Now(), TieBreak: s.tieBreak}
	log := s.logger.With(logger.String("run_id", sum.RunID))
	log.Info(ctx, "pipeline run started", logger.String("tie_break", string(s.tieBreak)))

	offers, err := catalog.Offers(in.Offers)
	if err != nil {
		return sum, fmt.Errorf("run %s: offers: %w", sum.RunID, err)
	}
	sum.Offers = len(offers)

	customers, profiles, err := catalog.Customers(in.Customers, catalog.WithMaxAge(s.maxAge))
	if err != nil {
		return sum, fmt.Errorf("run %s: profiles: %w", sum.RunID, err)
	}
	sum.Profiles = profiles
	if profiles.DroppedByAge > 0 {
		log.Info(ctx, "profiles dropped by age",
			logger.Int("dropped", profiles.DroppedByAge),
			logger.Int("max_age", s.maxAge),
		)
	}

	normOpts := []normalize.Option{normalize.WithLogger(log.Named("normalize"))}
	if len(in.Customers) > 0 {
		normOpts = append(normOpts, normalize.WithCustomers(customers))
	}
	tables, nrep, err := normalize.New(offers, normOpts...).Normalize(ctx, in.Events)
	if err != nil {
		return sum, fmt.Errorf("run %s: normalize: %w", sum.RunID, err)
	}
	sum.Normalize = nrep

	engine := attribution.New(attribution.WithTieBreak(s.tieBreak), attribution.WithLogger(log.Named("attribution")))
	res, partitions, err := s.attribute(ctx, engine, tables)
	if err != nil {
		return sum, fmt.Errorf("run %s: attribute: %w", sum.RunID, err)
	}
	sum.Partitions = partitions

	start := time.Now()
	stats := aggregate.Aggregate(res, catalog.IndexCustomers(customers))
	feats := features.Calculate(stats)
	metrics.RecordStageLatency("aggregate", float64(time.Since(start).Milliseconds()))

	summarize(&sum, res)
	sum.Customers = len(feats)

	if err := s.store.Publish(ctx, sum.RunID, res, feats); err != nil {
		return sum, err
	}

	if s.cohortQuery != nil {
		rep, err := cohort.Explore(feats, *s.cohortQuery)
		if err != nil {
			return sum, fmt.Errorf("run %s: cohort: %w", sum.RunID, err)
		}
		sum.Cohort = &rep
	}

	if s.exporter != nil {
		if err := s.exporter.Tables(ctx, res, feats); err != nil {
			return sum, fmt.Errorf("run %s: %w", sum.RunID, err)
		}
		if sum.Cohort != nil {
			if err := s.exporter.CohortReport(ctx, *sum.Cohort); err != nil {
				return sum, fmt.Errorf("run %s: %w", sum.RunID, err)
			}
		}
	}

	sum.Duration = time.Since(sum.StartedAt)
	log.Info(ctx, "pipeline run finished",
		logger.Int("customers", sum.Customers),
		logger.Int("receipts", sum.Receipts),
		logger.Int("receipts_responded", sum.ReceiptsResponded),
		logger.Int("transactions", sum.Transactions),
		logger.Int("transactions_attributed", sum.TransactionsAttributed),
		logger.Int("collisions", sum.Collisions),
		logger.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// attribute fans customer partitions out to the worker pool and merges the
// per-partition results back into input order.
func (s *Service) attribute(ctx context.Context, engine *attribution.Engine, tables model.Tables) (model.AttributionResult, int, error) {
	start := time.Now()
	parts := model.PartitionByCustomer(tables)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	q := eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	sink := newCollector(len(parts))
	pool := workerpool.NewPool(s.workerCount, q, engine, sink)
	pool.Start(runCtx)

	for i := range parts {
		if err := eventqueue.EnqueueWait(runCtx, q, parts[i], enqueueRetryInterval); err != nil {
			_ = pool.Shutdown(ctx)
			return model.AttributionResult{}, 0, err
		}
	}
	if err := q.Close(); err != nil {
		return model.AttributionResult{}, 0, err
	}
	if err := pool.Wait(runCtx); err != nil {
		return model.AttributionResult{}, 0, err
	}
	if got := sink.count(); got != len(parts) {
		return model.AttributionResult{}, 0, fmt.Errorf("collected %d of %d partitions", got, len(parts))
	}

	res := attribution.Merge(sink.snapshot())
	s.logger.Debug(ctx, "partitions attributed",
		logger.Int("partitions", len(parts)),
		logger.Int("workers", pool.Size()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, len(parts), nil
}

func summarize(sum *RunSummary, res model.AttributionResult) {
	sum.Receipts = len(res.ReceivedResponses)
	for _, rr := range res.ReceivedResponses {
		if rr.IsResponse {
			sum.ReceiptsResponded++
		}
	}
	sum.Transactions = len(res.TransactionResponses)
	for _, ta := range res.TransactionResponses {
		if ta.IsOffer {
			sum.TransactionsAttributed++
		}
		if ta.Candidates > 1 {
			sum.Collisions++
		}
	}
}

// LastRun returns the summary of the last successful run.
func (s *Service) LastRun() (RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunSummary{}, false
	}
	return *s.last, true
}

// Customer returns the published record of one customer.
func (s *Service) Customer(ctx context.Context, customerID string) (repository.CustomerRecord, error) {
	return s.store.Customer(ctx, customerID)
}

// Customers returns a page of published customer records.
func (s *Service) Customers(ctx context.Context, offset, limit int) ([]repository.CustomerRecord, error) {
	return s.store.Customers(ctx, offset, limit)
}

// Count returns the number of customers in the published run.
func (s *Service) Count(ctx context.Context) int {
	return s.store.Count(ctx)
}

// Cohorts runs an ad-hoc cohort query over the published feature table.
func (s *Service) Cohorts(ctx context.Context, q cohort.Query) (cohort.Report, error) {
	return cohort.Explore(s.store.Features(ctx), q)
}

// MaxCustomerLimit returns the largest accepted page size.
func (s *Service) MaxCustomerLimit() int { return s.maxLimit }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"running":     s.running,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"tieBreak":    string(s.tieBreak),
		"customers":   s.store.Count(ctx),
	}
	if s.last != nil {
		stats["lastRun"] = s.last
	}
	return stats
}
