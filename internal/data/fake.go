package data

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// FakeProvider generates deterministic synthetic history per symbol; the
// same symbol always yields the same walk. Used by offline runs and tests.
type FakeProvider struct {
	Unknown map[string]bool // symbols that report NoDataError
}

func NewFakeProvider(unknown ...string) *FakeProvider {
	m := make(map[string]bool, len(unknown))
	for _, s := range unknown {
		m[s] = true
	}
	return &FakeProvider{Unknown: m}
}

func (p *FakeProvider) Fetch(_ context.Context, symbol string, period Period) ([]market.Bar, error) {
	if symbol == "" || p.Unknown[symbol] {
		return nil, &NoDataError{Symbol: symbol}
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	n := period.Days() * 5 / 7 // trading days only
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -period.Days())

	bars := make([]market.Bar, 0, n)
	price := 50 + rng.Float64()*450
	drift := rng.NormFloat64() * 0.0005
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		price *= 1 + drift + rng.NormFloat64()*0.018
		high := price * (1 + rng.Float64()*0.012)
		low := price * (1 - rng.Float64()*0.012)
		bars = append(bars, market.Bar{
			Date:   d,
			Open:   low + rng.Float64()*(high-low),
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1e6 * (0.4 + rng.Float64()*1.2),
		})
	}
	return bars, nil
}
