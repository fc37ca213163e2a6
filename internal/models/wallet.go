package models

import "github.com/shopspring/decimal"

// Wallet is the user's balance. Version increases on every write and is the
// compare-and-swap token for settlement.
type Wallet struct {
	UserID       int64           `json:"user_id"`
	Balance      decimal.Decimal `json:"balance"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won"`
	Version      int64           `json:"-"`
}

type BalanceResponse struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won"`
}

func (w *Wallet) Response() BalanceResponse {
	return BalanceResponse{
		Balance:      w.Balance,
		TotalWagered: w.TotalWagered,
		TotalWon:     w.TotalWon,
	}
}
