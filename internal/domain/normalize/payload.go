package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload keys used by the event log. Offer ids appear under two spellings.
const (
	keyOfferIDSpaced     = "offer id"
	keyOfferIDUnderscore = "offer_id"
	keyAmount            = "amount"
)

// ExtractOfferID returns the offer id stored under "offer id" or, failing
// that, "offer_id". ok is false when neither key is present.
func ExtractOfferID(payload map[string]any) (id string, ok bool, err error) {
	v, present := payload[keyOfferIDSpaced]
	if !present {
		v, present = payload[keyOfferIDUnderscore]
	}
	if !present || v == nil {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString || strings.TrimSpace(s) == "" {
		return "", false, fmt.Errorf("%w: offer id %v is not a non-empty string", ErrMalformedEvent, v)
	}
	return s, true, nil
}

// ExtractAmount returns the "amount" value. ok is false when the key is
// absent; a present but non-numeric amount is an error.
func ExtractAmount(payload map[string]any) (amount float64, ok bool, err error) {
	v, present := payload[keyAmount]
	if !present || v == nil {
		return 0, false, nil
	}
	switch x := v.(type) {
	case float64:
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case json.Number:
		f, perr := x.Float64()
		if perr != nil {
			return 0, false, fmt.Errorf("%w: amount %q: %v", ErrMalformedEvent, x.String(), perr)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%w: amount %v is not numeric", ErrMalformedEvent, v)
	}
}
