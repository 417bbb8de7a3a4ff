// Package catalog reshapes raw offer and profile rows into typed reference
// data.
package catalog

import (
	"fmt"
	"strings"

	"github.com/okian/offerlens/internal/domain/model"
)

const hoursPerDay = 24

// Offers converts raw offer rows into catalog entries. Duration becomes
// hours and channel names become flags; unrecognized channels are ignored.
func Offers(raw []model.RawOffer) ([]model.Offer, error) {
	out := make([]model.Offer, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: row %d has no id", ErrInvalidOffer, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidOffer, id)
		}
		seen[id] = struct{}{}
		out = append(out, Offer(r))
	}
	return out, nil
}

// Offer converts a single raw offer row.
func Offer(r model.RawOffer) model.Offer {
	o := model.Offer{
		ID:            strings.TrimSpace(r.ID),
		Type:          model.OfferType(strings.ToLower(strings.TrimSpace(r.OfferType))),
		Difficulty:    r.Difficulty,
		Reward:        r.Reward,
		DurationDays:  r.Duration,
		DurationHours: r.Duration * hoursPerDay,
	}
	for _, ch := range r.Channels {
		switch ch {
		case "email":
			o.Channels.Email = true
		case "mobile":
			o.Channels.Mobile = true
		case "web":
			o.Channels.Web = true
		case "social":
			o.Channels.Social = true
		}
	}
	return o
}

// Index maps offers by id.
func Index(offers []model.Offer) map[string]model.Offer {
	idx := make(map[string]model.Offer, len(offers))
	for _, o := range offers {
		idx[o.ID] = o
	}
	return idx
}
