package games

import (
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

const minPayingRun = 3

// SpinReels fills the 5x3 grid, one draw per cell. reels[reel][row].
func SpinReels(gen Generator, symbols []string) [][]string {
	reels := make([][]string, models.SlotReels)
	for reel := 0; reel < models.SlotReels; reel++ {
		reels[reel] = make([]string, models.SlotRows)
		for row := 0; row < models.SlotRows; row++ {
			reels[reel][row] = symbols[gen.SlotCell(reel, row, len(symbols))]
		}
	}
	return reels
}

// RunLength counts identical symbols from reel 0 until the first mismatch.
func RunLength(line []string) int {
	if len(line) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(line); i++ {
		if line[i] != line[0] {
			break
		}
		n++
	}
	return n
}

// EvaluatePaylines returns the total paytable units won and the indices of
// the paylines that paid.
func EvaluatePaylines(reels [][]string, pt *models.Paytable) (decimal.Decimal, []int) {
	units := decimal.Zero
	winning := []int{}
	for i, rows := range pt.Paylines {
		line := make([]string, len(rows))
		for reel, row := range rows {
			line[reel] = reels[reel][row]
		}
		run := RunLength(line)
		if run < minPayingRun {
			continue
		}
		u := pt.Units(line[0], run)
		if !u.IsPositive() {
			continue
		}
		units = units.Add(u)
		winning = append(winning, i)
	}
	return units, winning
}
