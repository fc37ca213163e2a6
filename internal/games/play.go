package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

// Result is a computed outcome with its payout, before anything is persisted.
type Result struct {
	Outcome    models.Outcome
	Wager      decimal.Decimal
	Payout     decimal.Decimal
	Multiplier decimal.Decimal
	IsWin      bool
}

// Play generates the outcome for req with gen and applies the game's payout
// rules. req must already be validated.
func Play(gen Generator, cfg *models.GameConfig, req *models.BetRequest) (*Result, error) {
	wager := req.Wager()
	res := &Result{Wager: wager}

	switch req.GameType {
	case models.GameTypeCrash:
		point := gen.CrashPoint(cfg.HouseEdge, req.CashoutTarget)
		res.Payout, res.IsWin = CrashPayout(wager, req.CashoutTarget, point)
		res.Outcome.Crash = &models.CrashOutcome{CrashPoint: point, CashoutTarget: req.CashoutTarget}

	case models.GameTypeRoulette:
		spin := gen.RouletteSpin(req.StraightNumbers())
		res.Payout = RoulettePayout(spin, req.Bets)
		res.IsWin = res.Payout.GreaterThan(wager)
		res.Outcome.Roulette = &models.RouletteOutcome{SpinResult: spin, Bets: req.Bets}

	case models.GameTypeSlots:
		if cfg.Paytable == nil || len(cfg.Paytable.Symbols) == 0 {
			return nil, fmt.Errorf("slots: paytable is not configured")
		}
		reels := SpinReels(gen, cfg.Paytable.Symbols)
		units, lines := EvaluatePaylines(reels, cfg.Paytable)
		res.Payout = wager.Mul(units)
		res.IsWin = res.Payout.IsPositive()
		res.Outcome.Slots = &models.SlotsOutcome{Reels: reels, WinningLines: lines}

	default:
		return nil, fmt.Errorf("unsupported game type: %s", req.GameType)
	}

	res.Multiplier = Multiplier(wager, res.Payout)
	return res, nil
}

// Multiplier is payout/wager, or zero when nothing was paid.
func Multiplier(wager, payout decimal.Decimal) decimal.Decimal {
	if !payout.IsPositive() || !wager.IsPositive() {
		return decimal.Zero
	}
	return payout.Div(wager)
}
