// Package scoring turns a market snapshot into the composite ranking score.
package scoring

import "math"

type Weights struct {
	Volume       float64 `json:"volume"`
	Liquidity    float64 `json:"liquidity"`
	Holders      float64 `json:"holders"`
	Transactions float64 `json:"transactions"`
	PriceAction  float64 `json:"price_action"`
}

var DefaultWeights = Weights{
	Volume:       0.20,
	Liquidity:    0.35,
	Holders:      0.15,
	Transactions: 0.15,
	PriceAction:  0.05,
}

// Saturation points: the input at which a log-scaled sub-score reaches 1.
const (
	liquiditySaturationUSD = 1_000_000
	holderSaturation       = 1_000
	txSaturation           = 1_000
	healthyVolumeRatio     = 3
)

type Input struct {
	Volume24h   float64
	Liquidity   float64
	HolderCount int64
	Buys        int64
	Sells       int64
	// PriceChange24h is in percent: -25 means a 25% drop.
	PriceChange24h float64
}

// Breakdown records every intermediate value so a stored score can be explained later.
type Breakdown struct {
	Volume       float64 `json:"volume"`
	Liquidity    float64 `json:"liquidity"`
	Holders      float64 `json:"holders"`
	Transactions float64 `json:"transactions"`
	PriceAction  float64 `json:"price_action"`
	Weighted     float64 `json:"weighted"`
	Penalty      float64 `json:"penalty"`
	Score        float64 `json:"score"`
}

// Score applies DefaultWeights.
func Score(in Input) Breakdown {
	return DefaultWeights.Score(in)
}

func (w Weights) Score(in Input) Breakdown {
	b := Breakdown{
		Volume:       VolumeScore(in.Volume24h, in.Liquidity),
		Liquidity:    logScore(in.Liquidity, liquiditySaturationUSD),
		Holders:      logScore(float64(in.HolderCount), holderSaturation),
		Transactions: logScore(float64(in.Buys+in.Sells), txSaturation),
		PriceAction:  PriceActionScore(in.PriceChange24h),
	}
	b.Weighted = b.Volume*w.Volume +
		b.Liquidity*w.Liquidity +
		b.Holders*w.Holders +
		b.Transactions*w.Transactions +
		b.PriceAction*w.PriceAction
	b.Penalty = PenaltyMultiplier(in.PriceChange24h)
	b.Score = b.Weighted * b.Penalty * 100
	return b
}

// VolumeScore rewards a volume/liquidity ratio up to healthyVolumeRatio.
func VolumeScore(volume, liquidity float64) float64 {
	if !(liquidity > 0) || !finite(volume) {
		return 0
	}
	return clamp01(volume / liquidity / healthyVolumeRatio)
}

func logScore(v, saturation float64) float64 {
	if !(v > 0) || !finite(v) {
		return 0
	}
	return clamp01(math.Log10(v) / math.Log10(saturation))
}

// PriceActionScore is asymmetric: gains up to 50% climb linearly to 1 and larger
// gains decay toward 0.5; drops up to 10% fall linearly to 0 and larger drops
// follow exp(-0.15*(drop-10))*0.5. A flat price scores 1.
func PriceActionScore(change float64) float64 {
	if !finite(change) {
		return 0
	}
	if change > 0 {
		if change <= 50 {
			return math.Min(change/50, 1)
		}
		return math.Max(0.5, 1-(change-50)/150)
	}
	drop := math.Abs(change)
	if drop <= 10 {
		return math.Max(0, 1-drop/10)
	}
	return math.Max(0, math.Exp(-0.15*(drop-10))*0.5)
}

var cascade = []struct {
	below  float64
	factor float64
}{
	{-10, 0.7},
	{-20, 0.5},
	{-30, 0.3},
	{-50, 0.1},
	{-70, 0.01},
}

// PenaltyMultiplier is 1 unless the price fell. Each threshold crossed
// multiplies on top of exp(-2*|change|/100).
func PenaltyMultiplier(change float64) float64 {
	if !finite(change) {
		return 0
	}
	if change >= 0 {
		return 1
	}
	m := math.Exp(-2 * math.Abs(change) / 100)
	for _, step := range cascade {
		if change < step.below {
			m *= step.factor
		}
	}
	return m
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
