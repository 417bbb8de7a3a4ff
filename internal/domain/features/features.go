// Package features derives propensity ratios from customer stats and exposes
// every feature as a named numeric column.
package features

import "github.com/okian/offerlens/internal/domain/model"

// Ratio returns num/den, or nil when either side is absent or den is zero.
func Ratio(num float64, numOK bool, den float64, denOK bool) *float64 {
	if !numOK || !denOK || den == 0 {
		return nil
	}
	v := num / den
	return &v
}

func count(n int) (float64, bool) { return float64(n), true }

// Calculate adds the ratio columns to each row.
func Calculate(stats []model.CustomerStats) []model.CustomerFeatures {
	out := make([]model.CustomerFeatures, 0, len(stats))
	for _, s := range stats {
		f := model.CustomerFeatures{CustomerStats: s}

		offerTx, offerTxOK := count(s.OfferTransactions)
		txs, txsOK := count(s.Transactions)
		f.OfferCountRatio = Ratio(offerTx, offerTxOK, txs, txsOK)

		respSum, respSumOK := s.RespondedAmount.Total()
		txSum, txSumOK := s.TransactionAmount.Total()
		f.OfferAmountRatio = Ratio(respSum, respSumOK, txSum, txSumOK)

		byType := func(t model.OfferType) *float64 {
			n, ok := count(s.RespondedByType[t])
			return Ratio(n, ok, offerTx, offerTxOK)
		}
		f.BOGOOfferRatio = byType(model.OfferBOGO)
		f.DiscountOfferRatio = byType(model.OfferDiscount)
		f.InformationalOfferRatio = byType(model.OfferInformational)
		social, socialOK := count(s.RespondedSocial)
		f.SocialOfferRatio = Ratio(social, socialOK, offerTx, offerTxOK)

		maxDiff, maxDiffOK := s.RespondedDifficulty.Maximum()
		maxAmt, maxAmtOK := s.RespondedAmount.Maximum()
		f.DifficultyOfferRatio = Ratio(maxDiff, maxDiffOK, maxAmt, maxAmtOK)

		out = append(out, f)
	}
	return out
}
