package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"fairplay-backend/internal/models"
)

// GameConfigProvider reads game configuration from the store through a short
// TTL cache. Operators edit the stored copy; changes show up within the TTL.
type GameConfigProvider struct {
	store  Store
	cache  *cache.Cache
	logger *zap.Logger
}

func NewGameConfigProvider(store Store, ttl time.Duration, logger *zap.Logger) *GameConfigProvider {
	return &GameConfigProvider{
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (p *GameConfigProvider) Get(ctx context.Context, gameType models.GameType) (*models.GameConfig, error) {
	if cached, ok := p.cache.Get(string(gameType)); ok {
		return cached.(*models.GameConfig), nil
	}

	cfg, err := p.store.GetGameConfig(ctx, gameType)
	if err != nil {
		return nil, err
	}

	p.cache.SetDefault(string(gameType), cfg)
	return cfg, nil
}

// Playable returns the config for gameType, or KindGameUnavailable when it
// is missing or switched off.
func (p *GameConfigProvider) Playable(ctx context.Context, gameType models.GameType) (*models.GameConfig, error) {
	cfg, err := p.Get(ctx, gameType)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewBetError(models.KindGameUnavailable, "%s is not configured", gameType)
	}
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load game config")
	}
	if !cfg.Active {
		return nil, models.NewBetError(models.KindGameUnavailable, "%s is currently unavailable", gameType)
	}
	return cfg, nil
}

func (p *GameConfigProvider) Update(ctx context.Context, cfg *models.GameConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid game config: %w", err)
	}
	if err := p.store.SaveGameConfig(ctx, cfg); err != nil {
		return err
	}
	p.cache.Delete(string(cfg.GameType))
	return nil
}

// Seed writes each config that the store does not hold yet. Stored configs
// win over the file so runtime edits survive restarts.
func (p *GameConfigProvider) Seed(ctx context.Context, cfgs []*models.GameConfig) error {
	for _, cfg := range cfgs {
		created, err := p.store.SeedGameConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to seed %s config: %w", cfg.GameType, err)
		}
		if created {
			p.logger.Info("game config seeded",
				zap.String("game", string(cfg.GameType)),
				zap.String("rng_mode", string(cfg.RNGMode)),
				zap.Bool("active", cfg.Active))
		}
	}
	return nil
}
