package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTA struct{ calls int }

func (f *failingTA) Fetch(context.Context, string) (TASummary, error) {
	f.calls++
	return TASummary{}, fmt.Errorf("upstream down")
}

type slowSentiment struct{}

func (slowSentiment) Score(ctx context.Context, _ string) (SentimentScore, error) {
	select {
	case <-time.After(5 * time.Second):
		return SentimentScore{Score: 0.5, Label: SentimentBullish}, nil
	case <-ctx.Done():
		return SentimentScore{}, ctx.Err()
	}
}

func TestGuardedTA_DegradesToEmpty(t *testing.T) {
	inner := &failingTA{}
	g := NewGuardedTA(inner, time.Second)

	s, err := g.Fetch(context.Background(), "ACME")
	require.NoError(t, err, "best effort never propagates")
	assert.NotNil(t, s.Indicators)
	assert.Empty(t, s.Indicators)
	assert.Zero(t, s.BuyCount)
}

func TestGuardedTA_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingTA{}
	g := NewGuardedTA(inner, time.Second)

	for i := 0; i < 10; i++ {
		_, err := g.Fetch(context.Background(), "ACME")
		require.NoError(t, err)
	}
	// Once open, calls short-circuit without reaching the upstream.
	assert.Less(t, inner.calls, 10)
}

func TestGuardedSentiment_TimesOutToNeutral(t *testing.T) {
	g := NewGuardedSentiment(slowSentiment{}, 50*time.Millisecond)

	start := time.Now()
	s, err := g.Score(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, NeutralSentiment(), s)
}

func TestLabelForScore(t *testing.T) {
	assert.Equal(t, SentimentBullish, LabelForScore(0.2))
	assert.Equal(t, SentimentBearish, LabelForScore(-0.2))
	assert.Equal(t, SentimentNeutral, LabelForScore(0.04))
	assert.Equal(t, SentimentNeutral, LabelForScore(-0.04))
	assert.Equal(t, SentimentNeutral, LabelForScore(0))
}

func TestHTTPSentiment_ScoreAndClamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment/ACME", r.URL.Path)
		fmt.Fprint(w, `{"score": 1.7, "news_count": 12}`)
	}))
	defer srv.Close()

	p := NewHTTPSentiment(srv.URL, time.Second)
	s, err := p.Score(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Score)
	assert.Equal(t, SentimentBullish, s.Label)
	assert.Equal(t, 12, s.NewsCount)
}

func TestHTTPTA_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ta/ACME", r.URL.Path)
		fmt.Fprint(w, `{"indicators":{"RSI":48.2},"recommendation":"BUY","buy_count":14,"sell_count":3}`)
	}))
	defer srv.Close()

	p := NewHTTPTA(srv.URL, time.Second)
	s, err := p.Fetch(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "BUY", s.Recommendation)
	assert.Equal(t, 14, s.BuyCount)
	assert.InDelta(t, 48.2, s.Indicators["RSI"], 1e-9)
}

func TestHTTPTA_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPTA(srv.URL, time.Second)
	_, err := p.Fetch(context.Background(), "ACME")
	assert.Error(t, err)
}
