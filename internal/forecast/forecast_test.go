package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func TestCalendar_SkipsWeekendsAndHolidays(t *testing.T) {
	c := NewCalendar([]string{"2026-01-26", "garbage"})

	// 2026-01-23 is a Friday; the next business days skip the weekend and
	// the configured Monday holiday.
	from := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	days := c.NextBusinessDays(from, 3)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC), days[1])
	assert.Equal(t, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC), days[2])

	for _, d := range c.NextBusinessDays(from, 30) {
		assert.True(t, c.IsBusinessDay(d))
	}
}

func businessDayBars(n int, close func(i int) float64) []market.Bar {
	c := NewCalendar(nil)
	bars := make([]market.Bar, n)
	d := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		d = c.NextBusinessDays(d, 1)[0]
		bars[i] = market.Bar{Date: d, Close: close(i), Volume: 1000}
	}
	return bars
}

func TestTrendSeasonal_RecoversLinearTrend(t *testing.T) {
	bars := businessDayBars(120, func(i int) float64 { return 100 + 0.5*float64(i) })

	m, err := NewTrendSeasonal().Fit(bars)
	require.NoError(t, err)

	c := NewCalendar(nil)
	dates := c.NextBusinessDays(bars[len(bars)-1].Date, 5)
	pts := m.Predict(dates)
	require.Len(t, pts, 5)

	for i, p := range pts {
		want := 100 + 0.5*float64(120+i)
		assert.InDelta(t, want, p.Yhat, 1e-6, "point %d", i)
		// Perfect fit: the residual band collapses onto the forecast.
		assert.InDelta(t, p.Yhat, p.YhatLower, 1e-6)
		assert.InDelta(t, p.Yhat, p.YhatUpper, 1e-6)
		assert.Equal(t, dates[i], p.Date)
	}
}

func TestTrendSeasonal_BandsWidenWithNoise(t *testing.T) {
	bars := businessDayBars(120, func(i int) float64 {
		base := 100 + 0.2*float64(i)
		if i%2 == 0 {
			return base + 3
		}
		return base - 3
	})

	m, err := NewTrendSeasonal().Fit(bars)
	require.NoError(t, err)

	pts := m.Predict(NewCalendar(nil).NextBusinessDays(bars[len(bars)-1].Date, 3))
	for _, p := range pts {
		assert.Less(t, p.YhatLower, p.Yhat)
		assert.Greater(t, p.YhatUpper, p.Yhat)
	}
}

func TestTrendSeasonal_TooFewBars(t *testing.T) {
	bars := businessDayBars(10, func(i int) float64 { return 100 })
	_, err := NewTrendSeasonal().Fit(bars)
	assert.Error(t, err)
}

func TestTrendSeasonal_IgnoresBadCloses(t *testing.T) {
	bars := businessDayBars(60, func(i int) float64 { return 100 + float64(i) })
	bars[5].Close = -1
	bars[6].Close = 0

	m, err := NewTrendSeasonal().Fit(bars)
	require.NoError(t, err)

	pts := m.Predict(NewCalendar(nil).NextBusinessDays(bars[len(bars)-1].Date, 1))
	require.Len(t, pts, 1)
	assert.InDelta(t, 160, pts[0].Yhat, 1.0)
}
