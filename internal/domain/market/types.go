package market

import "time"

// Bar represents one trading day of OHLCV data for a symbol.
// Bar sequences are ordered strictly ascending by date with no duplicates.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FeatureRow is a Bar extended with derived indicator columns. Every derived
// field is computed only from bars at or before its own date; the regime
// label is the one documented exception (batch clustering over full history).
type FeatureRow struct {
	Bar

	// Trend
	EMA12       float64 `json:"ema_12"`
	EMA26       float64 `json:"ema_26"`
	SMA50       float64 `json:"sma_50"`
	SMA200      float64 `json:"sma_200"`
	MACD        float64 `json:"macd"`
	MACDSignal  float64 `json:"macd_signal"`
	ADX         float64 `json:"adx"`
	CCI         float64 `json:"cci"`

	// Momentum
	RSI       float64 `json:"rsi"`
	StochK    float64 `json:"stoch_k"`
	WilliamsR float64 `json:"williams_r"`

	// Volatility
	BBWidth float64 `json:"bb_width"`
	ATR     float64 `json:"atr"`
	NormATR float64 `json:"norm_atr"`

	// Volume
	OBV         float64 `json:"obv"`
	VolumeSMA20 float64 `json:"volume_sma_20"`

	// Returns
	Return1d  float64 `json:"return_1d"`
	LogReturn float64 `json:"log_return"`

	// Interactions
	RSIVolAdj   float64 `json:"rsi_vol_adj"`
	PriceVolMom float64 `json:"price_vol_mom"`

	// Adaptive thresholds
	RSIDynHigh float64 `json:"rsi_dynamic_high"`
	RSIDynLow  float64 `json:"rsi_dynamic_low"`

	// Trend persistence
	Hurst float64 `json:"hurst"`

	Regime Regime `json:"regime"`
}

// Regime is a discrete latent market state inferred by clustering, ordered
// from most bearish to most bullish. Labels are directional, not canonical:
// the clustering re-derives the ordering on every call.
type Regime int

const (
	RegimeUnknown Regime = iota
	RegimeStrongBear
	RegimeWeakBear
	RegimeChoppy
	RegimeWeakBull
	RegimeStrongBull
)

func (r Regime) String() string {
	switch r {
	case RegimeStrongBear:
		return "Bearish/Volatile"
	case RegimeWeakBear:
		return "Bearish/Choppy"
	case RegimeChoppy:
		return "Neutral/Choppy"
	case RegimeWeakBull:
		return "Bullish/Recovering"
	case RegimeStrongBull:
		return "Bullish/Trending"
	default:
		return "Unknown"
	}
}

// IsBearish reports whether the regime sits on the bearish side of the order.
func (r Regime) IsBearish() bool {
	return r == RegimeStrongBear || r == RegimeWeakBear
}

// IsBullish reports whether the regime sits on the bullish side of the order.
func (r Regime) IsBullish() bool {
	return r == RegimeWeakBull || r == RegimeStrongBull
}

// MarshalJSON emits the human-readable label.
func (r Regime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// OrderedRegimes returns the label order for a given cluster count, from
// most bearish to most bullish. Supported counts are 2 through 5; the
// default 3-cluster split maps to bear / choppy / bull.
func OrderedRegimes(k int) []Regime {
	switch k {
	case 2:
		return []Regime{RegimeStrongBear, RegimeStrongBull}
	case 4:
		return []Regime{RegimeStrongBear, RegimeWeakBear, RegimeChoppy, RegimeStrongBull}
	case 5:
		return []Regime{RegimeStrongBear, RegimeWeakBear, RegimeChoppy, RegimeWeakBull, RegimeStrongBull}
	default:
		return []Regime{RegimeStrongBear, RegimeChoppy, RegimeStrongBull}
	}
}

// Action is the categorical trading signal emitted by the signal engine.
type Action string

const (
	ActionStrongBuy Action = "Strong Buy"
	ActionBuy       Action = "Buy"
	ActionHold      Action = "Hold"
	ActionWait      Action = "Wait"
	ActionSell      Action = "Sell"
	ActionAvoid     Action = "Avoid"
)

// Closes extracts the close column from a bar sequence.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
