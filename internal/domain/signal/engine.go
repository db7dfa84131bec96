package signal

import (
	"fmt"
	"math"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Thresholds parameterize the technical conditions the engine evaluates on
// the latest feature row. Zero values are never used; call DefaultThresholds.
type Thresholds struct {
	DipRSI      float64 // below this in an uptrend is a buyable dip
	DeepDipRSI  float64 // below this is oversold enough for counter-trend entries
	RipRSI      float64 // above this is overbought
	VolumeSpike float64 // volume above this multiple of its average is distribution
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DipRSI:      45,
		DeepDipRSI:  35,
		RipRSI:      70,
		VolumeSpike: 2.5,
	}
}

// Inputs is the full state the engine decides on. It is built from the last
// feature row so the decision is a pure function of its fields.
type Inputs struct {
	Regime         market.Regime
	IsUptrend      bool
	IsDip          bool
	IsDeepDip      bool
	IsRip          bool
	IsSafeVolume   bool
	ExpectedReturn float64 // forecaster's signed expected return, percent
}

// BuildInputs derives the engine inputs from the latest row.
func BuildInputs(row market.FeatureRow, expectedReturn float64, th Thresholds) Inputs {
	safe := true
	if row.VolumeSMA20 > 0 && !math.IsNaN(row.VolumeSMA20) {
		safe = row.Volume < th.VolumeSpike*row.VolumeSMA20
	}
	return Inputs{
		Regime:         row.Regime,
		IsUptrend:      row.Close > row.SMA200,
		IsDip:          row.RSI < th.DipRSI,
		IsDeepDip:      row.RSI < th.DeepDipRSI,
		IsRip:          row.RSI > th.RipRSI,
		IsSafeVolume:   safe,
		ExpectedReturn: expectedReturn,
	}
}

// Decision is an action plus the human-readable reason it was taken.
type Decision struct {
	Action    market.Action
	Rationale string
}

// Decide applies the regime-gated rules in priority order. Regime context
// always gates the technicals, never the reverse: a perfect dip inside a
// confirmed bear regime still yields Avoid.
func Decide(in Inputs) Decision {
	switch {
	case in.Regime == market.RegimeStrongBear:
		return Decision{
			Action:    market.ActionAvoid,
			Rationale: "Bear regime in force. Capital preservation overrides all technical signals.",
		}
	case in.Regime == market.RegimeWeakBear || in.Regime == market.RegimeChoppy:
		if in.IsDeepDip && in.IsSafeVolume {
			return Decision{
				Action:    market.ActionBuy,
				Rationale: fmt.Sprintf("Deeply oversold in a weak market. Counter-trend entry with expected move of %+.1f%%.", in.ExpectedReturn),
			}
		}
		return Decision{
			Action:    market.ActionWait,
			Rationale: "Weak or directionless market without a deep oversold setup. Waiting for a better entry.",
		}
	}

	// Bull regimes, and Unknown treated as a weak bull with a caveat.
	d := bullBranch(in)
	if in.Regime == market.RegimeUnknown {
		d.Rationale += " (Regime detection unavailable; decision based on technicals only.)"
	}
	return d
}

func bullBranch(in Inputs) Decision {
	switch {
	case in.IsUptrend && in.IsDip:
		if in.IsSafeVolume {
			return Decision{
				Action:    market.ActionStrongBuy,
				Rationale: fmt.Sprintf("Uptrend pullback with healthy volume. Expected move %+.1f%%.", in.ExpectedReturn),
			}
		}
		return Decision{
			Action:    market.ActionWait,
			Rationale: "Dip on a volume spike looks like distribution, not accumulation. Standing aside.",
		}
	case in.IsRip:
		return Decision{
			Action:    market.ActionSell,
			Rationale: "Overbought. Taking profits into strength.",
		}
	case in.IsUptrend:
		return Decision{
			Action:    market.ActionHold,
			Rationale: "Established uptrend with no entry or exit trigger. Holding.",
		}
	default:
		return Decision{
			Action:    market.ActionAvoid,
			Rationale: "Price below its long-term average despite the bullish regime. No edge here.",
		}
	}
}
