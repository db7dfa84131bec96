package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/equityrun/equityrun/internal/domain/market"
)

func TestDecide_StrongBearAlwaysAvoids(t *testing.T) {
	// Every combination of technicals must be overridden by the bear gate.
	for _, uptrend := range []bool{true, false} {
		for _, dip := range []bool{true, false} {
			for _, safe := range []bool{true, false} {
				d := Decide(Inputs{
					Regime:       market.RegimeStrongBear,
					IsUptrend:    uptrend,
					IsDip:        dip,
					IsDeepDip:    dip,
					IsSafeVolume: safe,
				})
				assert.Equal(t, market.ActionAvoid, d.Action)
			}
		}
	}
}

func TestDecide_WeakMarketBranch(t *testing.T) {
	for _, regime := range []market.Regime{market.RegimeWeakBear, market.RegimeChoppy} {
		d := Decide(Inputs{Regime: regime, IsDeepDip: true, IsSafeVolume: true})
		assert.Equal(t, market.ActionBuy, d.Action, regime.String())

		d = Decide(Inputs{Regime: regime, IsDeepDip: true, IsSafeVolume: false})
		assert.Equal(t, market.ActionWait, d.Action, regime.String())

		d = Decide(Inputs{Regime: regime, IsDip: true, IsSafeVolume: true})
		assert.Equal(t, market.ActionWait, d.Action, "shallow dip is not enough")
	}
}

func TestDecide_BullBranch(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want market.Action
	}{
		{"dip on safe volume", Inputs{IsUptrend: true, IsDip: true, IsSafeVolume: true}, market.ActionStrongBuy},
		{"dip on volume spike", Inputs{IsUptrend: true, IsDip: true, IsSafeVolume: false}, market.ActionWait},
		{"overbought", Inputs{IsUptrend: true, IsRip: true, IsSafeVolume: true}, market.ActionSell},
		{"plain uptrend", Inputs{IsUptrend: true, IsSafeVolume: true}, market.ActionHold},
		{"below long-term average", Inputs{IsUptrend: false, IsSafeVolume: true}, market.ActionAvoid},
	}
	for _, regime := range []market.Regime{market.RegimeWeakBull, market.RegimeStrongBull} {
		for _, tc := range cases {
			in := tc.in
			in.Regime = regime
			d := Decide(in)
			assert.Equal(t, tc.want, d.Action, "%s in %s", tc.name, regime)
			assert.NotEmpty(t, d.Rationale)
		}
	}
}

func TestDecide_UnknownRegimeFallsBackToTechnicals(t *testing.T) {
	d := Decide(Inputs{Regime: market.RegimeUnknown, IsUptrend: true, IsDip: true, IsSafeVolume: true})
	assert.Equal(t, market.ActionStrongBuy, d.Action)
	assert.Contains(t, d.Rationale, "Regime detection unavailable")
}

func TestDecide_Deterministic(t *testing.T) {
	in := Inputs{Regime: market.RegimeWeakBull, IsUptrend: true, IsDip: true, IsSafeVolume: true, ExpectedReturn: 3.2}
	first := Decide(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Decide(in))
	}
}

func TestBuildInputs(t *testing.T) {
	th := DefaultThresholds()
	row := market.FeatureRow{
		Bar:         market.Bar{Close: 110, Volume: 1000},
		SMA200:      100,
		RSI:         40,
		VolumeSMA20: 500,
	}
	in := BuildInputs(row, 2.5, th)
	assert.True(t, in.IsUptrend)
	assert.True(t, in.IsDip)
	assert.False(t, in.IsDeepDip)
	assert.False(t, in.IsRip)
	assert.True(t, in.IsSafeVolume, "2x average volume is under the spike threshold")
	assert.Equal(t, 2.5, in.ExpectedReturn)

	row.Volume = 1300
	assert.False(t, BuildInputs(row, 0, th).IsSafeVolume)

	// Missing volume average defaults to safe.
	row.VolumeSMA20 = 0
	assert.True(t, BuildInputs(row, 0, th).IsSafeVolume)
}
