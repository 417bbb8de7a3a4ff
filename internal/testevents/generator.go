package testevents

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/offerlens/internal/domain/model"
	"github.com/okian/offerlens/pkg/logger"
)

// Simulation constants. Times are hours since the start of observation.
const (
	horizonHours      = 714
	viewProbability   = 0.75
	maxViewDelayHours = 48
	missingProfileP   = 0.12
	sentinelAge       = 118
	minAge            = 18
	maxAge            = 101
	minIncome         = 30000
	incomeSpan        = 90000
	maxTransactions   = 12
	minAmount         = 0.5
	amountSpan        = 30.0
	ctxCheckEvery     = 256
)

// Offers are sent to everyone at these hours.
var sendHours = []int{0, 168, 336, 408, 504, 576} //nolint:gochecknoglobals // read-only schedule

type offerTemplate struct {
	kind       string
	difficulty float64
	reward     float64
	days       int
	channels   []string
}

// catalog mirrors the shape of a small promotional portfolio.
var catalog = []offerTemplate{ //nolint:gochecknoglobals // read-only template list
	{"bogo", 10, 10, 7, []string{"email", "mobile", "social"}},
	{"bogo", 10, 10, 5, []string{"web", "email", "mobile", "social"}},
	{"informational", 0, 0, 4, []string{"web", "email", "mobile"}},
	{"bogo", 5, 5, 7, []string{"web", "email", "mobile"}},
	{"discount", 20, 5, 10, []string{"web", "email"}},
	{"discount", 7, 3, 7, []string{"web", "email", "mobile", "social"}},
	{"discount", 10, 2, 10, []string{"web", "email", "mobile", "social"}},
	{"informational", 0, 0, 3, []string{"email", "mobile", "social"}},
	{"bogo", 5, 5, 5, []string{"web", "email", "mobile", "social"}},
	{"discount", 10, 2, 7, []string{"web", "email", "mobile"}},
}

// generator draws every random value from one seeded stream so a seed always
// yields the same dataset.
type generator struct {
	src *rand.ChaCha8
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	return &generator{src: src, rng: rand.New(src)}
}

func (g *generator) id() (string, error) {
	u, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hexID(u), nil
}

// hexID renders u without dashes, the id style of the input files.
func hexID(u uuid.UUID) string {
	return fmt.Sprintf("%x", u[:])
}

// Generate simulates a dataset of config.Customers customers.
func Generate(ctx context.Context, config *Config) (Dataset, error) {
	if config.Customers < 1 {
		return Dataset{}, fmt.Errorf("customers must be positive, got %d", config.Customers)
	}
	logger.Get().Info(ctx, "generating dataset",
		logger.Int("customers", config.Customers),
		logger.Any("seed", config.Seed))

	g := newGenerator(config.Seed)
	var ds Dataset

	offers := make([]model.Offer, len(catalog))
	for i, t := range catalog {
		id, err := g.id()
		if err != nil {
			return Dataset{}, err
		}
		ds.Offers = append(ds.Offers, model.RawOffer{
			ID: id, OfferType: t.kind, Difficulty: t.difficulty, Reward: t.reward,
			Duration: t.days, Channels: t.channels,
		})
		offers[i] = model.Offer{ID: id, Type: model.OfferType(t.kind), Difficulty: t.difficulty, Reward: t.reward, DurationHours: t.days * 24}
	}

	for i := 0; i < config.Customers; i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Dataset{}, fmt.Errorf("context cancelled during generation: %w", err)
			}
		}
		id, err := g.id()
		if err != nil {
			return Dataset{}, err
		}
		ds.Customers = append(ds.Customers, g.profile(id))
		ds.Events = append(ds.Events, g.journey(id, offers)...)
	}

	sort.SliceStable(ds.Events, func(i, j int) bool { return ds.Events[i].Time < ds.Events[j].Time })
	logger.Get().Info(ctx, "generated dataset",
		logger.Int("offers", len(ds.Offers)),
		logger.Int("profiles", len(ds.Customers)),
		logger.Int("events", len(ds.Events)))
	return ds, nil
}

func (g *generator) profile(id string) model.RawCustomer {
	start := time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	since := start.AddDate(0, 0, g.rng.IntN(6*365))
	c := model.RawCustomer{ID: id, BecameMemberOn: since.Format("20060102")}
	if g.rng.Float64() < missingProfileP {
		c.Age = sentinelAge
		return c
	}
	gender := []string{"F", "M", "O"}[g.rng.IntN(3)]
	income := float64(minIncome + g.rng.IntN(incomeSpan/1000)*1000)
	c.Gender = &gender
	c.Age = minAge + g.rng.IntN(maxAge-minAge)
	c.Income = &income
	return c
}

// journey produces one customer's receipts, views, purchases and
// completions. A purchase completes every viewed progress offer whose window
// contains it and whose difficulty it meets.
func (g *generator) journey(cid string, offers []model.Offer) []model.RawEvent {
	var events []model.RawEvent
	type receipt struct {
		offer    model.Offer
		at       int
		viewedAt int
	}
	var receipts []receipt
	for _, at := range sendHours {
		if g.rng.IntN(4) == 0 {
			continue
		}
		o := offers[g.rng.IntN(len(offers))]
		r := receipt{offer: o, at: at, viewedAt: -1}
		events = append(events, model.RawEvent{Person: cid, Event: model.EventOfferReceived, Time: at, Value: map[string]any{"offer id": o.ID}})
		if g.rng.Float64() < viewProbability {
			r.viewedAt = at + g.rng.IntN(maxViewDelayHours)
			events = append(events, model.RawEvent{Person: cid, Event: model.EventOfferViewed, Time: r.viewedAt, Value: map[string]any{"offer id": o.ID}})
		}
		receipts = append(receipts, r)
	}

	n := g.rng.IntN(maxTransactions + 1)
	for i := 0; i < n; i++ {
		at := g.rng.IntN(horizonHours + 1)
		amount := math.Round((minAmount+g.rng.Float64()*amountSpan)*100) / 100
		events = append(events, model.RawEvent{Person: cid, Event: model.EventTransaction, Time: at, Value: map[string]any{"amount": amount}})
		for _, r := range receipts {
			if !r.offer.Type.ProgressBased() || r.viewedAt < 0 {
				continue
			}
			if at >= r.viewedAt && at-r.at <= r.offer.DurationHours && amount >= r.offer.Difficulty {
				events = append(events, model.RawEvent{Person: cid, Event: model.EventOfferCompleted, Time: at,
					Value: map[string]any{"offer_id": r.offer.ID, "reward": r.offer.Reward}})
			}
		}
	}
	return events
}
