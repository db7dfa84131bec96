package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// HTTPConfig configures the chart API client.
type HTTPConfig struct {
	BaseURL    string        // chart endpoint root
	Timeout    time.Duration // per-request timeout
	RequestsPS float64       // sustained request rate against the free tier
	Burst      int
	UserAgent  string
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:    "https://query1.finance.yahoo.com",
		Timeout:    15 * time.Second,
		RequestsPS: 2,
		Burst:      5,
		UserAgent:  "equityrun/1.0",
	}
}

// HTTPProvider fetches daily OHLCV history from a chart JSON API. Requests
// are rate limited client-side so bulk screens stay under the free-tier cap.
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.BaseURL == "" {
		cfg = DefaultHTTPConfig()
	}
	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPS), cfg.Burst),
	}
}

// chartResponse mirrors the chart API payload, fields we use only.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *HTTPProvider) Fetch(ctx context.Context, symbol string, period Period) ([]market.Bar, error) {
	if symbol == "" {
		return nil, fmt.Errorf("fetch: empty symbol")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		p.cfg.BaseURL, url.PathEscape(symbol), period)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("symbol", symbol).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("chart request completed")

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NoDataError{Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetch %s: decode: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, &NoDataError{Symbol: symbol}
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]market.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		bars = append(bars, market.Bar{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func at(xs []float64, i int) float64 {
	if i < len(xs) {
		return xs[i]
	}
	return 0
}
