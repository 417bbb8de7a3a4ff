package features

import (
	"sort"

	"github.com/okian/offerlens/internal/domain/model"
)

// Column is a named numeric feature. Value reports false when the cell is null.
type Column struct {
	Name  string
	Value func(*model.CustomerFeatures) (float64, bool)
}

func intCol(name string, get func(*model.CustomerFeatures) int) Column {
	return Column{Name: name, Value: func(f *model.CustomerFeatures) (float64, bool) { return float64(get(f)), true }}
}

func statCol(name string, get func(*model.CustomerFeatures) model.Stat, agg func(model.Stat) (float64, bool)) Column {
	return Column{Name: name, Value: func(f *model.CustomerFeatures) (float64, bool) { return agg(get(f)) }}
}

func ratioCol(name string, get func(*model.CustomerFeatures) *float64) Column {
	return Column{Name: name, Value: func(f *model.CustomerFeatures) (float64, bool) {
		if p := get(f); p != nil {
			return *p, true
		}
		return 0, false
	}}
}

// Columns lists the feature columns in export order.
var Columns = []Column{ //nolint:gochecknoglobals // read-only column registry
	intCol("received_count", func(f *model.CustomerFeatures) int { return f.Received }),
	intCol("received_bogo", func(f *model.CustomerFeatures) int { return f.ReceivedByType[model.OfferBOGO] }),
	intCol("received_discount", func(f *model.CustomerFeatures) int { return f.ReceivedByType[model.OfferDiscount] }),
	intCol("received_informational", func(f *model.CustomerFeatures) int { return f.ReceivedByType[model.OfferInformational] }),
	intCol("received_social", func(f *model.CustomerFeatures) int { return f.ReceivedSocial }),
	statCol("received_difficulty_min", receivedDifficulty, model.Stat.Minimum),
	statCol("received_difficulty_max", receivedDifficulty, model.Stat.Maximum),
	statCol("received_difficulty_mean", receivedDifficulty, model.Stat.Mean),

	intCol("responded_count", func(f *model.CustomerFeatures) int { return f.Responded }),
	intCol("responded_bogo", func(f *model.CustomerFeatures) int { return f.RespondedByType[model.OfferBOGO] }),
	intCol("responded_discount", func(f *model.CustomerFeatures) int { return f.RespondedByType[model.OfferDiscount] }),
	intCol("responded_informational", func(f *model.CustomerFeatures) int { return f.RespondedByType[model.OfferInformational] }),
	intCol("responded_social", func(f *model.CustomerFeatures) int { return f.RespondedSocial }),
	statCol("responded_difficulty_min", respondedDifficulty, model.Stat.Minimum),
	statCol("responded_difficulty_max", respondedDifficulty, model.Stat.Maximum),
	statCol("responded_difficulty_mean", respondedDifficulty, model.Stat.Mean),
	statCol("responded_amount_min", respondedAmount, model.Stat.Minimum),
	statCol("responded_amount_max", respondedAmount, model.Stat.Maximum),
	statCol("responded_amount_mean", respondedAmount, model.Stat.Mean),
	statCol("responded_amount_sum", respondedAmount, model.Stat.Total),

	statCol("transaction_amount_min", transactionAmount, model.Stat.Minimum),
	statCol("transaction_amount_max", transactionAmount, model.Stat.Maximum),
	statCol("transaction_amount_mean", transactionAmount, model.Stat.Mean),
	statCol("transaction_amount_sum", transactionAmount, model.Stat.Total),
	intCol("transaction_count", func(f *model.CustomerFeatures) int { return f.Transactions }),
	intCol("offer_transaction_count", func(f *model.CustomerFeatures) int { return f.OfferTransactions }),

	ratioCol("offer_count_ratio", func(f *model.CustomerFeatures) *float64 { return f.OfferCountRatio }),
	ratioCol("offer_amount_ratio", func(f *model.CustomerFeatures) *float64 { return f.OfferAmountRatio }),
	ratioCol("bogo_offer_ratio", func(f *model.CustomerFeatures) *float64 { return f.BOGOOfferRatio }),
	ratioCol("discount_offer_ratio", func(f *model.CustomerFeatures) *float64 { return f.DiscountOfferRatio }),
	ratioCol("informational_offer_ratio", func(f *model.CustomerFeatures) *float64 { return f.InformationalOfferRatio }),
	ratioCol("social_offer_ratio", func(f *model.CustomerFeatures) *float64 { return f.SocialOfferRatio }),
	ratioCol("difficulty_offer_ratio", func(f *model.CustomerFeatures) *float64 { return f.DifficultyOfferRatio }),

	{Name: "age", Value: func(f *model.CustomerFeatures) (float64, bool) {
		if f.Customer == nil {
			return 0, false
		}
		return float64(f.Customer.Age), true
	}},
	{Name: "income_k", Value: func(f *model.CustomerFeatures) (float64, bool) {
		if f.Customer == nil || !f.Customer.HasIncome {
			return 0, false
		}
		return f.Customer.IncomeK, true
	}},
}

func receivedDifficulty(f *model.CustomerFeatures) model.Stat  { return f.ReceivedDifficulty }
func respondedDifficulty(f *model.CustomerFeatures) model.Stat { return f.RespondedDifficulty }
func respondedAmount(f *model.CustomerFeatures) model.Stat     { return f.RespondedAmount }
func transactionAmount(f *model.CustomerFeatures) model.Stat   { return f.TransactionAmount }

var byName = func() map[string]Column { //nolint:gochecknoglobals // index over Columns
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// Lookup returns the column called name.
func Lookup(name string) (Column, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names returns every column name in sorted order.
func Names() []string {
	out := make([]string, 0, len(Columns))
	for _, c := range Columns {
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}
