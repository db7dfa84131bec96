package providers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// breakerSettings returns shared circuit breaker settings for best-effort
// upstreams: trip after 5 consecutive failures, probe again after 60s.
func breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	}
}

// GuardedTA wraps a TAProvider so failures and open circuits degrade to an
// empty summary instead of propagating. Each call is bounded by timeout.
type GuardedTA struct {
	inner   TAProvider
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuardedTA(inner TAProvider, timeout time.Duration) *GuardedTA {
	return &GuardedTA{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings("ta_summary")),
		timeout: timeout,
	}
}

func (g *GuardedTA) Fetch(ctx context.Context, symbol string) (TASummary, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.Fetch(ctx, symbol)
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("ta summary unavailable, using empty")
		return TASummary{Indicators: map[string]float64{}}, nil
	}
	return res.(TASummary), nil
}

// GuardedSentiment wraps a SentimentProvider with the same degradation
// policy, falling back to a neutral score.
type GuardedSentiment struct {
	inner   SentimentProvider
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewGuardedSentiment(inner SentimentProvider, timeout time.Duration) *GuardedSentiment {
	return &GuardedSentiment{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings("sentiment")),
		timeout: timeout,
	}
}

func (g *GuardedSentiment) Score(ctx context.Context, symbol string) (SentimentScore, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.Score(ctx, symbol)
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, using neutral")
		return NeutralSentiment(), nil
	}
	return res.(SentimentScore), nil
}
