package providers

import (
	"context"
)

// TASummary is a third-party technical consensus for one symbol.
type TASummary struct {
	Indicators     map[string]float64 `json:"indicators"`
	Recommendation string             `json:"recommendation"`
	BuyCount       int                `json:"buy_count"`
	SellCount      int                `json:"sell_count"`
}

// TAProvider fetches a technical summary. Best effort only: callers must
// tolerate the zero value.
type TAProvider interface {
	Fetch(ctx context.Context, symbol string) (TASummary, error)
}

// Sentiment labels derived from the aggregate news score.
const (
	SentimentBullish = "Bullish"
	SentimentNeutral = "Neutral"
	SentimentBearish = "Bearish"
)

// SentimentScore is the aggregate news sentiment for one symbol.
type SentimentScore struct {
	Score     float64 `json:"score"` // in [-1, 1]
	Label     string  `json:"label"`
	NewsCount int     `json:"news_count"`
}

// SentimentProvider scores recent news coverage. Best effort only.
type SentimentProvider interface {
	Score(ctx context.Context, symbol string) (SentimentScore, error)
}

// sentimentThreshold separates the neutral band from directional labels.
const sentimentThreshold = 0.05

// LabelForScore maps a score to its display label.
func LabelForScore(score float64) string {
	switch {
	case score > sentimentThreshold:
		return SentimentBullish
	case score < -sentimentThreshold:
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// NeutralSentiment is the fallback when scoring is unavailable.
func NeutralSentiment() SentimentScore {
	return SentimentScore{Score: 0, Label: SentimentNeutral, NewsCount: 0}
}

// DisabledTA stands in when no technical summary endpoint is configured.
type DisabledTA struct{}

func (DisabledTA) Fetch(context.Context, string) (TASummary, error) {
	return TASummary{Indicators: map[string]float64{}}, nil
}

// DisabledSentiment stands in when no sentiment endpoint is configured.
type DisabledSentiment struct{}

func (DisabledSentiment) Score(context.Context, string) (SentimentScore, error) {
	return NeutralSentiment(), nil
}
