package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var healthy = Input{
	Volume24h:   500_000,
	Liquidity:   1_000_000,
	HolderCount: 1000,
	Buys:        1200,
	Sells:       800,
}

func TestScoreRisingLiquidToken(t *testing.T) {
	in := healthy
	in.PriceChange24h = 20

	b := Score(in)
	assert.InDelta(t, 1.0, b.Liquidity, 1e-9)
	assert.InDelta(t, 1.0, b.Holders, 1e-9)
	assert.InDelta(t, 1.0/6, b.Volume, 1e-9)
	assert.InDelta(t, 1.0, b.Transactions, 1e-9)
	assert.InDelta(t, 0.4, b.PriceAction, 1e-9)
	assert.Equal(t, 1.0, b.Penalty)
	assert.InDelta(t, 70.33, b.Score, 0.01)
}

func TestScoreDropCollapsesThroughCascade(t *testing.T) {
	up := healthy
	up.PriceChange24h = 20
	down := healthy
	down.PriceChange24h = -25

	b := Score(down)
	assert.InDelta(t, math.Exp(-0.15*15)*0.5, b.PriceAction, 1e-9)
	assert.InDelta(t, math.Exp(-0.5)*0.7*0.5, b.Penalty, 1e-9)

	expectedWeighted := (1.0/6)*0.20 + 0.35 + 0.15 + 0.15 + b.PriceAction*0.05
	assert.InDelta(t, expectedWeighted*math.Exp(-0.5)*0.35*100, b.Score, 1e-9)

	ratio := b.Score / Score(up).Score
	assert.InDelta(t, 0.2, ratio, 0.02)
}

func TestScoreIsDeterministic(t *testing.T) {
	in := healthy
	in.PriceChange24h = -3.3
	first := Score(in)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Score(in))
	}
}

func TestScoreStrictlyDecreasesBeyondTenPercentDrop(t *testing.T) {
	prev := math.Inf(1)
	for change := -10.5; change >= -100; change -= 0.5 {
		in := healthy
		in.PriceChange24h = change
		s := Score(in).Score
		require.GreaterOrEqual(t, s, 0.0)
		require.Less(t, s, prev, "change %.1f", change)
		prev = s
	}
}

func TestPriceActionBranches(t *testing.T) {
	cases := []struct {
		name   string
		change float64
		want   float64
	}{
		{"flat", 0, 1},
		{"small gain", 25, 0.5},
		{"fifty", 50, 1},
		{"large gain", 125, 0.5},
		{"huge gain floors", 1000, 0.5},
		{"mild gain above fifty", 80, 0.8},
		{"small drop", -5, 0.5},
		{"ten drop", -10, 0},
		{"large drop", -20, math.Exp(-1.5) * 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, PriceActionScore(tc.change), 1e-9)
		})
	}
}

func TestPenaltyThresholdsAreCumulative(t *testing.T) {
	assert.Equal(t, 1.0, PenaltyMultiplier(0))
	assert.Equal(t, 1.0, PenaltyMultiplier(42))
	assert.InDelta(t, math.Exp(-0.1), PenaltyMultiplier(-5), 1e-12)
	assert.InDelta(t, math.Exp(-0.2), PenaltyMultiplier(-10), 1e-12)
	assert.InDelta(t, math.Exp(-1.6)*0.7*0.5*0.3*0.1*0.01, PenaltyMultiplier(-80), 1e-15)
}

func TestZeroAndDegenerateInputs(t *testing.T) {
	b := Score(Input{})
	assert.Equal(t, 0.0, b.Volume)
	assert.Equal(t, 0.0, b.Liquidity)
	assert.Equal(t, 0.0, b.Holders)
	assert.Equal(t, 0.0, b.Transactions)
	assert.InDelta(t, 5.0, b.Score, 1e-9)

	tiny := Score(Input{Liquidity: 0.5, Volume24h: 10})
	assert.Equal(t, 0.0, tiny.Liquidity)
	assert.Equal(t, 1.0, tiny.Volume)

	nan := Score(Input{Liquidity: math.NaN(), PriceChange24h: math.NaN()})
	assert.Equal(t, 0.0, nan.Score)
}
