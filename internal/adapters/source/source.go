// Package source decodes the offer portfolio, customer profiles and event
// transcript from JSON files. Each file may hold either one JSON object per
// line or a single JSON array.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/okian/offerlens/internal/domain/model"
)

// ctxCheckEvery is how many records are decoded between context checks.
const ctxCheckEvery = 4096

// LoadOffers reads raw offer rows from path.
func LoadOffers(ctx context.Context, path string) ([]model.RawOffer, error) {
	return loadFile[model.RawOffer](ctx, path)
}

// LoadCustomers reads raw profile rows from path.
func LoadCustomers(ctx context.Context, path string) ([]model.RawCustomer, error) {
	return loadFile[model.RawCustomer](ctx, path)
}

// LoadEvents reads the raw event transcript from path.
func LoadEvents(ctx context.Context, path string) ([]model.RawEvent, error) {
	return loadFile[model.RawEvent](ctx, path)
}

func loadFile[T any](ctx context.Context, path string) ([]T, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	rows, err := Decode[T](ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Decode reads JSON lines or a JSON array of T from r.
func Decode[T any](ctx context.Context, r io.Reader) ([]T, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var rows []T
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("%w: decode array: %v", ErrLoad, err)
		}
		return rows, nil
	}

	var rows []T
	for {
		if len(rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var row T
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrLoad, len(rows)+1, err)
		}
		rows = append(rows, row)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
