package games

import (
	"fmt"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

// Replay recomputes a fair outcome from disclosed seeds, ignoring the
// configured rng mode.
func Replay(seeds fairness.Seeds, cfg *models.GameConfig, req *models.BetRequest) (*Result, error) {
	return Play(FairGenerator{Seeds: seeds}, cfg, req)
}

// RequestFromRecord rebuilds the request a bet record was settled from.
func RequestFromRecord(rec *models.BetRecord) (*models.BetRequest, error) {
	req := &models.BetRequest{GameType: rec.GameType, Amount: rec.Wager}
	switch rec.GameType {
	case models.GameTypeCrash:
		if rec.Outcome.Crash == nil {
			return nil, fmt.Errorf("bet %s: missing crash outcome", rec.ID)
		}
		req.CashoutTarget = rec.Outcome.Crash.CashoutTarget
	case models.GameTypeRoulette:
		if rec.Outcome.Roulette == nil {
			return nil, fmt.Errorf("bet %s: missing roulette outcome", rec.ID)
		}
		req.Bets = rec.Outcome.Roulette.Bets
	case models.GameTypeSlots:
		if rec.Outcome.Slots == nil {
			return nil, fmt.Errorf("bet %s: missing slots outcome", rec.ID)
		}
	default:
		return nil, fmt.Errorf("bet %s: unknown game type %q", rec.ID, rec.GameType)
	}
	return req, nil
}

// SameOutcome compares the generated part of two outcomes: crash point,
// spin result, or the reel grid.
func SameOutcome(a, b models.Outcome) bool {
	switch {
	case a.Crash != nil && b.Crash != nil:
		return a.Crash.CrashPoint.Equal(b.Crash.CrashPoint)
	case a.Roulette != nil && b.Roulette != nil:
		return a.Roulette.SpinResult == b.Roulette.SpinResult
	case a.Slots != nil && b.Slots != nil:
		if len(a.Slots.Reels) != len(b.Slots.Reels) {
			return false
		}
		for i := range a.Slots.Reels {
			if len(a.Slots.Reels[i]) != len(b.Slots.Reels[i]) {
				return false
			}
			for j := range a.Slots.Reels[i] {
				if a.Slots.Reels[i][j] != b.Slots.Reels[i][j] {
					return false
				}
			}
		}
		return true
	}
	return false
}
