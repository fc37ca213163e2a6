package services

import "fairplay-backend/internal/models"

// Broadcaster pushes settlement events to connected players. It is called
// only after a settlement has been committed.
type Broadcaster interface {
	BroadcastBetSettled(userID int64, result *models.BetResult)
	BroadcastBalanceUpdate(userID int64, balance models.BalanceResponse)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastBetSettled(int64, *models.BetResult)         {}
func (noopBroadcaster) BroadcastBalanceUpdate(int64, models.BalanceResponse) {}
