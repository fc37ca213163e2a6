package games

import (
	"github.com/shopspring/decimal"
)

const (
	two32 = uint64(1) << 32

	minCrashHundredths = 100   // 1.00x
	maxCrashHundredths = 10000 // 100.00x
)

var (
	crashBust      = decimal.New(minCrashHundredths, -2)
	edgeScale      = decimal.NewFromInt(10000)
	lossWindowLow  = decimal.RequireFromString("0.30")
	lossWindowHigh = decimal.RequireFromString("0.05")
	winFloor       = decimal.RequireFromString("0.10")
	winSpread      = decimal.NewFromInt(5)

	controlledLossChance = 0.7
)

// FairCrashPoint maps a derived integer d to a crash multiplier.
//
// roll = (d mod 10000)/100; if roll < houseEdge*100 the round busts at 1.00.
// Otherwise the point is floor((100*2^32 - d) / (2^32 - d)) / 100, clamped to
// [1.00, 100.00]. Everything is integer arithmetic so the displayed and the
// settled multiplier never drift.
func FairCrashPoint(d uint32, houseEdge decimal.Decimal) decimal.Decimal {
	roll := decimal.NewFromInt(int64(d % 10000))
	if roll.LessThan(houseEdge.Mul(edgeScale)) {
		return crashBust
	}

	v := uint64(d)
	h := (100*two32 - v) / (two32 - v)
	if h < minCrashHundredths {
		h = minCrashHundredths
	}
	if h > maxCrashHundredths {
		h = maxCrashHundredths
	}
	return decimal.New(int64(h), -2)
}

// controlledCrashPoint loses with probability 0.7 by crashing just below
// target, otherwise wins by crashing between target+0.10 and target+5.10.
func controlledCrashPoint(s Sampler, target decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if s.Float64() < controlledLossChance {
		lower := decimal.Max(one, target.Sub(lossWindowLow))
		upper := decimal.Max(one, target.Sub(lossWindowHigh))
		span := upper.Sub(lower)
		return lower.Add(span.Mul(decimal.NewFromFloat(s.Float64()))).Round(2)
	}
	return target.Add(winFloor).Add(winSpread.Mul(decimal.NewFromFloat(s.Float64()))).Round(2)
}

// CrashPayout pays wager*target when the round reached the target.
func CrashPayout(wager, target, crashPoint decimal.Decimal) (decimal.Decimal, bool) {
	if crashPoint.GreaterThanOrEqual(target) {
		return wager.Mul(target), true
	}
	return decimal.Zero, false
}
