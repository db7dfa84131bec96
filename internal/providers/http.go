package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPTA fetches technical summaries from a JSON endpoint shaped like
// GET {base}/ta/{symbol}.
type HTTPTA struct {
	base   string
	client *http.Client
}

func NewHTTPTA(base string, timeout time.Duration) *HTTPTA {
	return &HTTPTA{base: base, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPTA) Fetch(ctx context.Context, symbol string) (TASummary, error) {
	var out TASummary
	u := fmt.Sprintf("%s/ta/%s", p.base, url.PathEscape(symbol))
	if err := getJSON(ctx, p.client, u, &out); err != nil {
		return TASummary{}, fmt.Errorf("ta summary %s: %w", symbol, err)
	}
	if out.Indicators == nil {
		out.Indicators = map[string]float64{}
	}
	return out, nil
}

// HTTPSentiment scores news sentiment from GET {base}/sentiment/{symbol}.
// The upstream returns the raw score and article count; the label is derived
// locally so the neutral band is consistent across providers.
type HTTPSentiment struct {
	base   string
	client *http.Client
}

func NewHTTPSentiment(base string, timeout time.Duration) *HTTPSentiment {
	return &HTTPSentiment{base: base, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPSentiment) Score(ctx context.Context, symbol string) (SentimentScore, error) {
	var raw struct {
		Score     float64 `json:"score"`
		NewsCount int     `json:"news_count"`
	}
	u := fmt.Sprintf("%s/sentiment/%s", p.base, url.PathEscape(symbol))
	if err := getJSON(ctx, p.client, u, &raw); err != nil {
		return SentimentScore{}, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	if raw.Score > 1 {
		raw.Score = 1
	} else if raw.Score < -1 {
		raw.Score = -1
	}
	return SentimentScore{
		Score:     raw.Score,
		Label:     LabelForScore(raw.Score),
		NewsCount: raw.NewsCount,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
