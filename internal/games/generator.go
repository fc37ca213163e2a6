// Package games maps round randomness to Crash, Roulette and Slots outcomes
// and computes their payouts.
package games

import (
	"math/rand/v2"
	"strconv"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

// Generator supplies the randomness for one round. The fair generator is
// derived from the seed pair and is reproducible; the controlled generator
// is not and biases against the player's stated target.
type Generator interface {
	Mode() models.RNGMode
	Auditable() bool
	CrashPoint(houseEdge, target decimal.Decimal) decimal.Decimal
	RouletteSpin(straight []int) int
	SlotCell(reel, row, symbols int) int
}

// Sampler is the non-auditable random source used in controlled mode.
type Sampler interface {
	Float64() float64
	IntN(n int) int
}

type globalSampler struct{}

func (globalSampler) Float64() float64 { return rand.Float64() }
func (globalSampler) IntN(n int) int   { return rand.IntN(n) }

// DefaultSampler draws from math/rand/v2's shared source.
var DefaultSampler Sampler = globalSampler{}

// NewGenerator returns the generator for mode. A nil sampler means DefaultSampler.
func NewGenerator(mode models.RNGMode, seeds fairness.Seeds, sampler Sampler) Generator {
	if mode == models.RNGModeControlled {
		if sampler == nil {
			sampler = DefaultSampler
		}
		return ControlledGenerator{Sampler: sampler}
	}
	return FairGenerator{Seeds: seeds}
}

type FairGenerator struct {
	Seeds fairness.Seeds
}

func (FairGenerator) Mode() models.RNGMode { return models.RNGModeFair }
func (FairGenerator) Auditable() bool      { return true }

func (g FairGenerator) CrashPoint(houseEdge, _ decimal.Decimal) decimal.Decimal {
	return FairCrashPoint(g.Seeds.Uint32(""), houseEdge)
}

func (g FairGenerator) RouletteSpin([]int) int {
	return g.Seeds.Int("", models.RoulettePockets)
}

func (g FairGenerator) SlotCell(reel, row, symbols int) int {
	return g.Seeds.Int(CellContext(reel, row), symbols)
}

// CellContext is the HMAC context for a slots cell: its index in reel-major order.
func CellContext(reel, row int) string {
	return strconv.Itoa(reel*models.SlotRows + row)
}

type ControlledGenerator struct {
	Sampler Sampler
}

func (ControlledGenerator) Mode() models.RNGMode { return models.RNGModeControlled }
func (ControlledGenerator) Auditable() bool      { return false }

func (g ControlledGenerator) CrashPoint(_, target decimal.Decimal) decimal.Decimal {
	return controlledCrashPoint(g.Sampler, target)
}

func (g ControlledGenerator) RouletteSpin(straight []int) int {
	return controlledSpin(g.Sampler, straight)
}

// SlotCell draws uniformly over the whole symbol set; controlled slots are
// unbiased.
func (g ControlledGenerator) SlotCell(_, _, symbols int) int {
	return g.Sampler.IntN(symbols)
}
