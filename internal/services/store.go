package services

import (
	"context"
	"time"

	"fairplay-backend/internal/models"
)

// Store is the backing store behind the seed registry and the settlement
// ledger. Implementations return models.ErrNotFound for missing entities and
// models.ErrConflict when a conditional write loses a race.
type Store interface {
	// GetWallet returns the user's wallet, creating it with the starting
	// balance on first access.
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)

	// CreateSeedPair installs pair as the user's active pair unless one is
	// already active, in which case the existing pair is returned.
	CreateSeedPair(ctx context.Context, pair *models.SeedPair) (*models.SeedPair, error)
	GetActiveSeedPair(ctx context.Context, userID int64) (*models.SeedPair, error)
	GetSeedPair(ctx context.Context, seedID string) (*models.SeedPair, error)
	AdvanceNonce(ctx context.Context, seedID string, expected uint64) (uint64, error)
	// RotateSeedPair retires retiredID and activates next. It fails with
	// ErrConflict when retiredID is no longer the active pair.
	RotateSeedPair(ctx context.Context, retiredID string, next *models.SeedPair) error

	// CommitSettlement advances the seed nonce, writes the wallet and appends
	// the bet record as one atomic unit.
	CommitSettlement(ctx context.Context, s *Settlement) (*models.Wallet, error)
	GetBet(ctx context.Context, betID string) (*models.BetRecord, error)
	ListBets(ctx context.Context, userID int64, limit int) ([]*models.BetRecord, error)

	GetGameConfig(ctx context.Context, gameType models.GameType) (*models.GameConfig, error)
	SaveGameConfig(ctx context.Context, cfg *models.GameConfig) error
	// SeedGameConfig writes cfg only if no config exists for its game type.
	SeedGameConfig(ctx context.Context, cfg *models.GameConfig) (bool, error)

	CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error)

	Close() error
}

// Settlement is one bet ready to be committed. Record.Nonce must be the nonce
// read from the seed pair and Wallet.Version the version read from the
// wallet; the commit fails with ErrConflict if either has moved.
type Settlement struct {
	Record *models.BetRecord
	Wallet models.Wallet
}
