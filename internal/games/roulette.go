package games

import (
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// IsRed reports whether n is a red pocket. Zero is neither red nor black.
func IsRed(n int) bool { return redNumbers[n] }

func IsBlack(n int) bool { return n >= 1 && n <= 36 && !redNumbers[n] }

// payoutMultiple is the win multiple excluding the returned stake.
func payoutMultiple(t models.RouletteBetType) int64 {
	switch t {
	case models.BetStraight:
		return 35
	case models.BetDozen1, models.BetDozen2, models.BetDozen3:
		return 2
	default:
		return 1
	}
}

func betWins(b models.RouletteBet, spin int) bool {
	switch b.Type {
	case models.BetStraight:
		for _, n := range b.Numbers {
			if n == spin {
				return true
			}
		}
		return false
	case models.BetRed:
		return IsRed(spin)
	case models.BetBlack:
		return IsBlack(spin)
	case models.BetEven:
		return spin != 0 && spin%2 == 0
	case models.BetOdd:
		return spin%2 == 1
	case models.BetLow:
		return spin >= 1 && spin <= 18
	case models.BetHigh:
		return spin >= 19 && spin <= 36
	case models.BetDozen1:
		return spin >= 1 && spin <= 12
	case models.BetDozen2:
		return spin >= 13 && spin <= 24
	case models.BetDozen3:
		return spin >= 25 && spin <= 36
	}
	return false
}

// RoulettePayout sums amount*(multiple+1) over every winning bet.
func RoulettePayout(spin int, bets []models.RouletteBet) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bets {
		if betWins(b, spin) {
			total = total.Add(b.Amount.Mul(decimal.NewFromInt(payoutMultiple(b.Type) + 1)))
		}
	}
	return total
}

// controlledSpin never lands on a straight-bet number. If every pocket is
// covered it falls back to the full wheel.
func controlledSpin(s Sampler, excluded []int) int {
	skip := make(map[int]bool, len(excluded))
	for _, n := range excluded {
		skip[n] = true
	}
	available := make([]int, 0, models.RoulettePockets)
	for n := 0; n < models.RoulettePockets; n++ {
		if !skip[n] {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		return s.IntN(models.RoulettePockets)
	}
	return available[s.IntN(len(available))]
}
