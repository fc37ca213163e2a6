package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SlotReels = 5
	SlotRows  = 3

	// RoulettePockets is the size of a European wheel, pockets 0-36.
	RoulettePockets = 37
)

// Outcome is the game-specific result of one bet. Exactly one field is set,
// matching the record's GameType.
type Outcome struct {
	Crash    *CrashOutcome    `json:"crash,omitempty"`
	Roulette *RouletteOutcome `json:"roulette,omitempty"`
	Slots    *SlotsOutcome    `json:"slots,omitempty"`
}

type CrashOutcome struct {
	CrashPoint    decimal.Decimal `json:"crash_point"`
	CashoutTarget decimal.Decimal `json:"cashout_target"`
}

type RouletteOutcome struct {
	SpinResult int           `json:"spin_result"`
	Bets       []RouletteBet `json:"bets"`
}

type SlotsOutcome struct {
	// Reels[reel][row] is the symbol shown at that cell.
	Reels        [][]string `json:"reels"`
	WinningLines []int      `json:"winning_lines"`
}

// BetRecord is the append-only audit entry written once per settlement.
type BetRecord struct {
	ID             string          `json:"id"`
	UserID         int64           `json:"user_id"`
	GameType       GameType        `json:"game_type"`
	SeedID         string          `json:"seed_id"`
	Nonce          uint64          `json:"nonce"`
	Wager          decimal.Decimal `json:"wager"`
	Payout         decimal.Decimal `json:"payout"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Outcome        Outcome         `json:"outcome"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	IsWin          bool            `json:"is_win"`
	RNGMode        RNGMode         `json:"rng_mode"`
	Auditable      bool            `json:"auditable"`
	Rules          *RuleSnapshot   `json:"rules,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BetResult is returned to the player after a successful settlement.
type BetResult struct {
	BetID          string          `json:"bet_id"`
	GameType       GameType        `json:"game_type"`
	Outcome        Outcome         `json:"outcome"`
	Wager          decimal.Decimal `json:"wager"`
	Payout         decimal.Decimal `json:"payout"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	IsWin          bool            `json:"is_win"`
	NewBalance     decimal.Decimal `json:"new_balance"`
	Nonce          uint64          `json:"nonce"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	RNGMode        RNGMode         `json:"rng_mode"`
	Auditable      bool            `json:"auditable"`
}

func NewBetResult(rec *BetRecord, newBalance decimal.Decimal) *BetResult {
	return &BetResult{
		BetID:          rec.ID,
		GameType:       rec.GameType,
		Outcome:        rec.Outcome,
		Wager:          rec.Wager,
		Payout:         rec.Payout,
		Multiplier:     rec.Multiplier,
		IsWin:          rec.IsWin,
		NewBalance:     newBalance,
		Nonce:          rec.Nonce,
		ServerSeedHash: rec.ServerSeedHash,
		ClientSeed:     rec.ClientSeed,
		RNGMode:        rec.RNGMode,
		Auditable:      rec.Auditable,
	}
}

// Verification reports whether a settled bet can be reproduced from its seeds.
type Verification struct {
	BetID             string   `json:"bet_id"`
	Auditable         bool     `json:"auditable"`
	Disclosed         bool     `json:"disclosed"`
	ServerSeed        string   `json:"server_seed,omitempty"`
	ServerSeedHash    string   `json:"server_seed_hash"`
	ClientSeed        string   `json:"client_seed"`
	Nonce             uint64   `json:"nonce"`
	RoundHash         string   `json:"round_hash,omitempty"`
	CommitmentValid   bool     `json:"commitment_valid"`
	OutcomeMatches    bool     `json:"outcome_matches"`
	RecordedOutcome   Outcome  `json:"recorded_outcome"`
	RecomputedOutcome *Outcome `json:"recomputed_outcome,omitempty"`
}
