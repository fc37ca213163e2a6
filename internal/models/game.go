package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type GameType string

const (
	GameTypeCrash    GameType = "crash"
	GameTypeRoulette GameType = "roulette"
	GameTypeSlots    GameType = "slots"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeCrash, GameTypeRoulette, GameTypeSlots:
		return true
	}
	return false
}

// RNGMode selects how a game's outcome is generated.
type RNGMode string

const (
	// RNGModeFair derives outcomes from the user's seed pair and nonce.
	RNGModeFair RNGMode = "fair"
	// RNGModeControlled samples outcomes biased against the player's target.
	// Bets settled in this mode cannot be reproduced from the seed pair.
	RNGModeControlled RNGMode = "controlled"
)

func (m RNGMode) Valid() bool {
	return m == RNGModeFair || m == RNGModeControlled
}

// GameConfig is externally managed per game type. The engine only reads it.
type GameConfig struct {
	GameType  GameType        `json:"game_type"`
	Active    bool            `json:"active"`
	RNGMode   RNGMode         `json:"rng_mode"`
	HouseEdge decimal.Decimal `json:"house_edge"`
	MinWager  decimal.Decimal `json:"min_wager"`
	MaxWager  decimal.Decimal `json:"max_wager"` // zero means unbounded
	Paytable  *Paytable       `json:"paytable,omitempty"`
}

// Paytable holds the static slots data. Payouts[symbol][n-1] is the number of
// wager units paid for a run of n identical symbols.
type Paytable struct {
	Symbols  []string                     `json:"symbols"`
	Paylines [][]int                      `json:"paylines"`
	Payouts  map[string][]decimal.Decimal `json:"payouts"`
}

func (c *GameConfig) Validate() error {
	if !c.GameType.Valid() {
		return fmt.Errorf("unknown game type %q", c.GameType)
	}
	if !c.RNGMode.Valid() {
		return fmt.Errorf("%s: unknown rng mode %q", c.GameType, c.RNGMode)
	}
	if c.HouseEdge.IsNegative() || c.HouseEdge.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s: house edge must be in [0,1), got %s", c.GameType, c.HouseEdge)
	}
	if c.MinWager.IsNegative() || c.MaxWager.IsNegative() {
		return fmt.Errorf("%s: wager limits must not be negative", c.GameType)
	}
	if c.MaxWager.IsPositive() && c.MaxWager.LessThan(c.MinWager) {
		return fmt.Errorf("%s: max wager %s below min wager %s", c.GameType, c.MaxWager, c.MinWager)
	}
	if c.GameType == GameTypeSlots {
		if c.Paytable == nil {
			return fmt.Errorf("slots: paytable is required")
		}
		return c.Paytable.Validate()
	}
	return nil
}

func (p *Paytable) Validate() error {
	if len(p.Symbols) == 0 {
		return fmt.Errorf("slots: paytable has no symbols")
	}
	known := make(map[string]bool, len(p.Symbols))
	for _, s := range p.Symbols {
		if s == "" {
			return fmt.Errorf("slots: empty symbol name")
		}
		if known[s] {
			return fmt.Errorf("slots: duplicate symbol %q", s)
		}
		known[s] = true
	}
	if len(p.Paylines) == 0 {
		return fmt.Errorf("slots: paytable has no paylines")
	}
	for i, line := range p.Paylines {
		if len(line) != SlotReels {
			return fmt.Errorf("slots: payline %d has %d positions, want %d", i, len(line), SlotReels)
		}
		for _, row := range line {
			if row < 0 || row >= SlotRows {
				return fmt.Errorf("slots: payline %d row %d out of range", i, row)
			}
		}
	}
	for sym, units := range p.Payouts {
		if !known[sym] {
			return fmt.Errorf("slots: payout for unknown symbol %q", sym)
		}
		if len(units) > SlotReels {
			return fmt.Errorf("slots: payout schedule for %q longer than %d reels", sym, SlotReels)
		}
		for _, u := range units {
			if u.IsNegative() {
				return fmt.Errorf("slots: negative payout for %q", sym)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p *Paytable) Clone() *Paytable {
	out := &Paytable{
		Symbols:  append([]string(nil), p.Symbols...),
		Paylines: make([][]int, len(p.Paylines)),
		Payouts:  make(map[string][]decimal.Decimal, len(p.Payouts)),
	}
	for i, line := range p.Paylines {
		out.Paylines[i] = append([]int(nil), line...)
	}
	for sym, units := range p.Payouts {
		out.Payouts[sym] = append([]decimal.Decimal(nil), units...)
	}
	return out
}

// RuleSnapshot is the part of a GameConfig that shapes an outcome: the crash
// house edge and the slots paytable. Bet records carry one so a later config
// edit does not change how they replay.
type RuleSnapshot struct {
	HouseEdge decimal.Decimal `json:"house_edge"`
	Paytable  *Paytable       `json:"paytable,omitempty"`
}

func (c *GameConfig) Rules() *RuleSnapshot {
	r := &RuleSnapshot{HouseEdge: c.HouseEdge}
	if c.Paytable != nil {
		r.Paytable = c.Paytable.Clone()
	}
	return r
}

// ReplayConfig rebuilds a fair-mode config for gameType from the snapshot.
func (r *RuleSnapshot) ReplayConfig(gameType GameType) *GameConfig {
	return &GameConfig{
		GameType:  gameType,
		Active:    true,
		RNGMode:   RNGModeFair,
		HouseEdge: r.HouseEdge,
		Paytable:  r.Paytable,
	}
}

// Units returns the paytable units for a run of n identical symbols.
func (p *Paytable) Units(symbol string, n int) decimal.Decimal {
	schedule := p.Payouts[symbol]
	if n < 1 || n > len(schedule) {
		return decimal.Zero
	}
	return schedule[n-1]
}

// PublicConfig is what players may see about a game.
type PublicConfig struct {
	GameType  GameType        `json:"game_type"`
	Active    bool            `json:"active"`
	Auditable bool            `json:"auditable"`
	HouseEdge decimal.Decimal `json:"house_edge"`
	MinWager  decimal.Decimal `json:"min_wager"`
	MaxWager  decimal.Decimal `json:"max_wager"`
	Paytable  *Paytable       `json:"paytable,omitempty"`
}

func (c *GameConfig) Public() PublicConfig {
	return PublicConfig{
		GameType:  c.GameType,
		Active:    c.Active,
		Auditable: c.RNGMode == RNGModeFair,
		HouseEdge: c.HouseEdge,
		MinWager:  c.MinWager,
		MaxWager:  c.MaxWager,
		Paytable:  c.Paytable,
	}
}
