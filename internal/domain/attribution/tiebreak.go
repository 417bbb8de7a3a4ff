package attribution

import (
	"fmt"
	"strings"

	"github.com/okian/offerlens/internal/domain/model"
)

// TieBreak selects the winner among equal-reward candidates of one
// transaction. The choice is arbitrary; it only has to be deterministic.
type TieBreak string

// Supported tie-break policies.
const (
	TieBreakInputOrder       TieBreak = "input_order"
	TieBreakOfferID          TieBreak = "offer_id"
	TieBreakEarliestReceived TieBreak = "earliest_received"
)

// ParseTieBreak converts a configuration string to a TieBreak. The empty
// string selects TieBreakInputOrder.
func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(s))); tb {
	case "":
		return TieBreakInputOrder, nil
	case TieBreakInputOrder, TieBreakOfferID, TieBreakEarliestReceived:
		return tb, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTieBreak, s)
	}
}

// beats reports whether a should win over b. Candidates arrive in engine
// order, so returning false on a full tie keeps the earlier one.
func (tb TieBreak) beats(a, b *model.Attribution) bool {
	if a.Received.Offer.Reward != b.Received.Offer.Reward {
		return a.Received.Offer.Reward > b.Received.Offer.Reward
	}
	switch tb {
	case TieBreakOfferID:
		return a.Received.OfferID < b.Received.OfferID
	case TieBreakEarliestReceived:
		return a.Received.Time < b.Received.Time
	default:
		return false
	}
}
