package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/equityrun/equityrun/internal/data"
)

const dateLayout = "2006-01-02"

// Entry is one logged prediction. Date is the day the prediction was made;
// TargetDate is the trading day it was verified against.
type Entry struct {
	Date       string   `json:"date"`
	Predicted  float64  `json:"predicted"`
	Actual     *float64 `json:"actual"`
	TargetDate string   `json:"target_date,omitempty"`
	Verified   bool     `json:"verified"`
}

// Store persists the per-symbol prediction log. Histories are append/update
// only; a backend never truncates on its own.
type Store interface {
	History(ctx context.Context, symbol string) ([]Entry, error)
	Put(ctx context.Context, symbol string, entries []Entry) error
	Close() error
}

// Stats summarizes forecast quality for one symbol. Accuracy is a display
// string: a percentage, "Pending" when nothing verified yet, or "N/A" with
// no history at all.
type Stats struct {
	Accuracy   string  `json:"accuracy"`
	MAEPercent float64 `json:"mae_percent"`
	Samples    int     `json:"samples"`
}

// Clock interface for time operations (injectable for testing)
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Tracker logs next-day price predictions and verifies them against actual
// closes once the market has printed them.
type Tracker struct {
	store    Store
	provider data.Provider
	clock    Clock
}

func New(store Store, provider data.Provider) *Tracker {
	return &Tracker{store: store, provider: provider, clock: RealClock{}}
}

// SetClock sets the clock implementation (for testing)
func (t *Tracker) SetClock(clock Clock) {
	t.clock = clock
}

// Close releases the underlying store.
func (t *Tracker) Close() error {
	return t.store.Close()
}

// Log records a prediction made today. Logging the same symbol again on the
// same day is a no-op, so repeated pipeline runs cannot inflate the history.
func (t *Tracker) Log(ctx context.Context, symbol string, predicted float64) error {
	entries, err := t.store.History(ctx, symbol)
	if err != nil {
		return fmt.Errorf("tracker log %s: %w", symbol, err)
	}

	today := t.clock.Now().Format(dateLayout)
	for _, e := range entries {
		if e.Date == today {
			return nil
		}
	}
	entries = append(entries, Entry{Date: today, Predicted: predicted})
	if err := t.store.Put(ctx, symbol, entries); err != nil {
		return fmt.Errorf("tracker log %s: %w", symbol, err)
	}
	log.Debug().Str("symbol", symbol).Float64("predicted", predicted).Msg("prediction logged")
	return nil
}

// Verify resolves unverified entries against the first trading day strictly
// after each entry's log date. Entries with no qualifying close yet stay
// pending. Fetch failures leave the history untouched.
func (t *Tracker) Verify(ctx context.Context, symbol string) error {
	entries, err := t.store.History(ctx, symbol)
	if err != nil {
		return fmt.Errorf("tracker verify %s: %w", symbol, err)
	}
	pending := 0
	for _, e := range entries {
		if !e.Verified {
			pending++
		}
	}
	if pending == 0 {
		return nil
	}

	bars, err := t.provider.Fetch(ctx, symbol, data.Period6Months)
	if err != nil {
		return fmt.Errorf("tracker verify %s: %w", symbol, err)
	}

	updated := false
	for i := range entries {
		e := &entries[i]
		if e.Verified {
			continue
		}
		logged, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			log.Warn().Str("symbol", symbol).Str("date", e.Date).Msg("unparseable log date, skipping entry")
			continue
		}
		for _, bar := range bars {
			if bar.Date.After(logged) {
				actual := bar.Close
				e.Actual = &actual
				e.TargetDate = bar.Date.Format(dateLayout)
				e.Verified = true
				updated = true
				break
			}
		}
	}
	if !updated {
		return nil
	}
	return t.store.Put(ctx, symbol, entries)
}

// Stats verifies pending entries, then reports the mean absolute percentage
// error over everything verified. Reported accuracy is floored at zero.
func (t *Tracker) Stats(ctx context.Context, symbol string) (Stats, error) {
	if err := t.Verify(ctx, symbol); err != nil {
		// Verification is best effort here: stale stats beat no stats.
		log.Warn().Err(err).Str("symbol", symbol).Msg("verification failed, reporting stored stats")
	}

	entries, err := t.store.History(ctx, symbol)
	if err != nil {
		return Stats{}, fmt.Errorf("tracker stats %s: %w", symbol, err)
	}
	if len(entries) == 0 {
		return Stats{Accuracy: "N/A"}, nil
	}

	sum, n := 0.0, 0
	for _, e := range entries {
		if !e.Verified || e.Actual == nil || *e.Actual == 0 {
			continue
		}
		sum += math.Abs(e.Predicted-*e.Actual) / *e.Actual * 100
		n++
	}
	if n == 0 {
		return Stats{Accuracy: "Pending"}, nil
	}

	mae := sum / float64(n)
	accuracy := math.Max(0, 100-mae)
	return Stats{
		Accuracy:   fmt.Sprintf("%.1f%%", accuracy),
		MAEPercent: math.Round(mae*100) / 100,
		Samples:    n,
	}, nil
}
