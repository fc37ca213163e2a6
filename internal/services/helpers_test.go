package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

var startingBalance = decimal.NewFromInt(100)

func newRedisStore(t *testing.T) *services.RedisService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := services.NewRedisServiceWithClient(client, startingBalance)
	t.Cleanup(func() { store.Close() })
	return store
}

func newSQLStore(t *testing.T) *services.SQLStore {
	t.Helper()
	store, err := services.NewSQLStore(":memory:", startingBalance)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

type testEnv struct {
	store   services.Store
	seeds   *services.SeedRegistry
	configs *services.GameConfigProvider
	engine  *services.GameEngine
}

func newEnv(t *testing.T, store services.Store, opts ...services.EngineOption) *testEnv {
	t.Helper()
	logger := zapNop()

	cfgs, err := config.LoadGameConfigs("")
	if err != nil {
		t.Fatalf("Failed to load game configs: %v", err)
	}
	configs := services.NewGameConfigProvider(store, time.Minute, logger)
	if err := configs.Seed(context.Background(), cfgs); err != nil {
		t.Fatalf("Failed to seed game configs: %v", err)
	}

	seeds := services.NewSeedRegistry(store, logger)
	return &testEnv{
		store:   store,
		seeds:   seeds,
		configs: configs,
		engine:  services.NewGameEngine(store, seeds, configs, logger, opts...),
	}
}

// forEachStore runs fn once against Redis (miniredis) and once against
// in-memory SQLite.
func forEachStore(t *testing.T, fn func(t *testing.T, store services.Store)) {
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLStore(t)) })
}

func setMode(t *testing.T, env *testEnv, gameType models.GameType, mode models.RNGMode, active bool) {
	t.Helper()
	cfg, err := env.configs.Get(context.Background(), gameType)
	if err != nil {
		t.Fatalf("Failed to get %s config: %v", gameType, err)
	}
	updated := *cfg
	updated.RNGMode = mode
	updated.Active = active
	if err := env.configs.Update(context.Background(), &updated); err != nil {
		t.Fatalf("Failed to update %s config: %v", gameType, err)
	}
}

func crashBet(amount, target string) *models.BetRequest {
	return &models.BetRequest{
		GameType:      models.GameTypeCrash,
		Amount:        decimal.RequireFromString(amount),
		CashoutTarget: decimal.RequireFromString(target),
	}
}

func slotsBet(amount string) *models.BetRequest {
	return &models.BetRequest{GameType: models.GameTypeSlots, Amount: decimal.RequireFromString(amount)}
}

// zeroSampler always draws the lowest value.
type zeroSampler struct{}

func (zeroSampler) Float64() float64 { return 0 }
func (zeroSampler) IntN(int) int     { return 0 }

func errorIsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
