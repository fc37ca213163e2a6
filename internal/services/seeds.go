package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/monitoring"
)

// SeedRegistry owns the per-user seed pairs and their nonces.
type SeedRegistry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewSeedRegistry(store Store, logger *zap.Logger) *SeedRegistry {
	return &SeedRegistry{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateActiveSeedPair returns the user's active pair, creating one on
// first use. Concurrent first calls all observe the same pair.
func (r *SeedRegistry) GetOrCreateActiveSeedPair(ctx context.Context, userID int64) (*models.SeedPair, error) {
	pair, err := r.store.GetActiveSeedPair(ctx, userID)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load seed pair")
	}

	fresh, err := r.newPair(userID, "")
	if err != nil {
		return nil, err
	}

	pair, err = r.store.CreateSeedPair(ctx, fresh)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to create seed pair")
	}
	if pair.ID == fresh.ID {
		r.logger.Info("seed pair created",
			zap.Int64("user_id", userID),
			zap.String("seed_id", pair.ID),
			zap.String("server_seed_hash", pair.ServerSeedHash))
	}
	return pair, nil
}

// GetActiveSeedPair never creates; a missing pair is KindNoActiveSeed.
func (r *SeedRegistry) GetActiveSeedPair(ctx context.Context, userID int64) (*models.SeedPair, error) {
	pair, err := r.store.GetActiveSeedPair(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewBetError(models.KindNoActiveSeed, "no active seed pair for user %d", userID)
	}
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load seed pair")
	}
	return pair, nil
}

func (r *SeedRegistry) GetSeedPair(ctx context.Context, seedID string) (*models.SeedPair, error) {
	return r.store.GetSeedPair(ctx, seedID)
}

// AdvanceNonce increments the pair's nonce only if it still equals expected.
func (r *SeedRegistry) AdvanceNonce(ctx context.Context, seedID string, expected uint64) (uint64, error) {
	next, err := r.store.AdvanceNonce(ctx, seedID, expected)
	if errors.Is(err, models.ErrConflict) {
		return 0, models.WrapBetError(models.KindConcurrentModification, err, "nonce already advanced")
	}
	if errors.Is(err, models.ErrNotFound) {
		return 0, models.NewBetError(models.KindNoActiveSeed, "seed pair %s not found", seedID)
	}
	if err != nil {
		return 0, models.WrapBetError(models.KindInternalFault, err, "failed to advance nonce")
	}
	return next, nil
}

// RotateSeedPair retires the active pair, revealing its secret, and installs
// a fresh one. An empty clientSeed gets a generated one.
func (r *SeedRegistry) RotateSeedPair(ctx context.Context, userID int64, clientSeed string) (retired, active *models.SeedPair, err error) {
	current, err := r.GetOrCreateActiveSeedPair(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	next, err := r.newPair(userID, clientSeed)
	if err != nil {
		return nil, nil, err
	}

	if err := r.store.RotateSeedPair(ctx, current.ID, next); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, nil, models.WrapBetError(models.KindConcurrentModification, err, "seed pair changed during rotation")
		}
		return nil, nil, models.WrapBetError(models.KindInternalFault, err, "failed to rotate seed pair")
	}

	retired, err = r.store.GetSeedPair(ctx, current.ID)
	if err != nil {
		return nil, nil, models.WrapBetError(models.KindInternalFault, err, "failed to load retired seed pair")
	}
	active, err = r.store.GetSeedPair(ctx, next.ID)
	if err != nil {
		return nil, nil, models.WrapBetError(models.KindInternalFault, err, "failed to load new seed pair")
	}

	monitoring.SeedRotations.Inc()
	r.logger.Info("seed pair rotated",
		zap.Int64("user_id", userID),
		zap.String("retired_seed_id", retired.ID),
		zap.Uint64("retired_nonce", retired.Nonce),
		zap.String("active_seed_id", active.ID))

	return retired, active, nil
}

func (r *SeedRegistry) newPair(userID int64, clientSeed string) (*models.SeedPair, error) {
	serverSeed, err := fairness.NewServerSeed()
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to generate server seed")
	}
	if clientSeed == "" {
		if clientSeed, err = fairness.NewClientSeed(); err != nil {
			return nil, models.WrapBetError(models.KindInternalFault, err, "failed to generate client seed")
		}
	}

	return &models.SeedPair{
		ID:             models.GenerateSeedID(),
		UserID:         userID,
		ServerSeed:     serverSeed,
		ServerSeedHash: fairness.Commit(serverSeed),
		ClientSeed:     clientSeed,
		Active:         true,
		CreatedAt:      r.now(),
	}, nil
}
