package models

import "github.com/shopspring/decimal"

type RouletteBetType string

const (
	BetStraight RouletteBetType = "straight"
	BetRed      RouletteBetType = "red"
	BetBlack    RouletteBetType = "black"
	BetEven     RouletteBetType = "even"
	BetOdd      RouletteBetType = "odd"
	BetLow      RouletteBetType = "low"
	BetHigh     RouletteBetType = "high"
	BetDozen1   RouletteBetType = "dozen1"
	BetDozen2   RouletteBetType = "dozen2"
	BetDozen3   RouletteBetType = "dozen3"
)

type RouletteBet struct {
	Type    RouletteBetType `json:"type"`
	Numbers []int           `json:"numbers,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// MinCashoutTarget is the lowest crash multiplier a player may target.
var MinCashoutTarget = decimal.RequireFromString("1.01")

// BetRequest carries one play. Amount applies to crash and slots, Bets to
// roulette, CashoutTarget to crash only.
type BetRequest struct {
	GameType      GameType        `json:"game_type"`
	Amount        decimal.Decimal `json:"amount"`
	CashoutTarget decimal.Decimal `json:"cashout_target"`
	Bets          []RouletteBet   `json:"bets,omitempty"`
}

type CrashPlayRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	CashoutMultiplier decimal.Decimal `json:"cashout_multiplier"`
}

type RoulettePlayRequest struct {
	Bets []RouletteBet `json:"bets"`
}

type SlotsPlayRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type VerifyRequest struct {
	GameType          GameType        `json:"game_type" binding:"required"`
	ServerSeed        string          `json:"server_seed" binding:"required"`
	ClientSeed        string          `json:"client_seed" binding:"required"`
	Nonce             uint64          `json:"nonce"`
	CashoutMultiplier decimal.Decimal `json:"cashout_multiplier"`
	Bets              []RouletteBet   `json:"bets,omitempty"`
}

// Wager is the total amount staked by the request.
func (br *BetRequest) Wager() decimal.Decimal {
	if br.GameType != GameTypeRoulette {
		return br.Amount
	}
	total := decimal.Zero
	for _, b := range br.Bets {
		total = total.Add(b.Amount)
	}
	return total
}

func (br *BetRequest) Validate() error {
	switch br.GameType {
	case GameTypeCrash:
		if !br.Amount.IsPositive() {
			return NewBetError(KindInvalidWager, "bet amount must be positive")
		}
		if br.CashoutTarget.LessThan(MinCashoutTarget) {
			return NewBetError(KindInvalidTarget, "cashout multiplier must be at least %s", MinCashoutTarget)
		}
	case GameTypeSlots:
		if !br.Amount.IsPositive() {
			return NewBetError(KindInvalidWager, "bet amount must be positive")
		}
	case GameTypeRoulette:
		if len(br.Bets) == 0 {
			return NewBetError(KindInvalidTarget, "at least one roulette bet is required")
		}
		for i, b := range br.Bets {
			if err := b.validate(); err != nil {
				return NewBetError(KindInvalidWager, "bet %d: %s", i, err.Error())
			}
		}
	default:
		return NewBetError(KindGameUnavailable, "unknown game type %q", br.GameType)
	}
	return nil
}

type ruleError string

func (e ruleError) Error() string { return string(e) }

func (b RouletteBet) validate() error {
	if !b.Amount.IsPositive() {
		return ruleError("amount must be positive")
	}
	switch b.Type {
	case BetStraight:
		if len(b.Numbers) != 1 {
			return ruleError("straight bet covers exactly one number")
		}
		for _, n := range b.Numbers {
			if n < 0 || n >= RoulettePockets {
				return ruleError("number out of range 0-36")
			}
		}
	case BetRed, BetBlack, BetEven, BetOdd, BetLow, BetHigh, BetDozen1, BetDozen2, BetDozen3:
	default:
		return ruleError("unknown bet type " + string(b.Type))
	}
	return nil
}

// StraightNumbers lists every number covered by straight bets.
func (br *BetRequest) StraightNumbers() []int {
	var out []int
	for _, b := range br.Bets {
		if b.Type == BetStraight {
			out = append(out, b.Numbers...)
		}
	}
	return out
}
