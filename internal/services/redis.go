package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/models"
)

type RedisService struct {
	client          *redis.Client
	startingBalance decimal.Decimal
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceWithClient(client, cfg.StartingBalance), nil
}

// NewRedisServiceWithClient wraps an existing client. New wallets start with
// startingBalance.
func NewRedisServiceWithClient(client *redis.Client, startingBalance decimal.Decimal) *RedisService {
	return &RedisService{
		client:          client,
		startingBalance: startingBalance,
	}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// scriptError maps Lua error replies onto the store sentinels.
func scriptError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, conflictPrefix):
		return fmt.Errorf("%w: %s", models.ErrConflict, msg)
	case strings.Contains(msg, "NOTFOUND"):
		return fmt.Errorf("%w: %s", models.ErrNotFound, msg)
	}
	return err
}

var ensureWalletScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 0 then
		redis.call("HSET", KEYS[1],
			"balance", ARGV[1],
			"total_wagered", "0",
			"total_won", "0",
			"version", "0")
	end
	return "OK"
`)

func (s *RedisService) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	if err := ensureWalletScript.Run(ctx, s.client, []string{key}, s.startingBalance.String()).Err(); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return parseWallet(userID, fields)
}

func parseWallet(userID int64, fields map[string]string) (*models.Wallet, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("wallet %d: %w", userID, models.ErrNotFound)
	}

	wallet := &models.Wallet{UserID: userID}
	var err error
	if wallet.Balance, err = decimal.NewFromString(fields["balance"]); err != nil {
		return nil, fmt.Errorf("wallet %d: bad balance: %w", userID, err)
	}
	if wallet.TotalWagered, err = decimal.NewFromString(fields["total_wagered"]); err != nil {
		return nil, fmt.Errorf("wallet %d: bad total_wagered: %w", userID, err)
	}
	if wallet.TotalWon, err = decimal.NewFromString(fields["total_won"]); err != nil {
		return nil, fmt.Errorf("wallet %d: bad total_won: %w", userID, err)
	}
	if wallet.Version, err = strconv.ParseInt(fields["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("wallet %d: bad version: %w", userID, err)
	}
	return wallet, nil
}

var createSeedScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if current then
		return current
	end

	redis.call("HSET", KEYS[2],
		"id", ARGV[1],
		"user_id", ARGV[2],
		"server_seed", ARGV[3],
		"server_seed_hash", ARGV[4],
		"client_seed", ARGV[5],
		"nonce", "0",
		"active", "1",
		"created_at", ARGV[6])
	redis.call("SET", KEYS[1], ARGV[1])
	redis.call("ZADD", KEYS[3], ARGV[7], ARGV[1])
	return ARGV[1]
`)

func (s *RedisService) CreateSeedPair(ctx context.Context, pair *models.SeedPair) (*models.SeedPair, error) {
	keys := []string{
		fmt.Sprintf(KeyUserActiveSeed, pair.UserID),
		fmt.Sprintf(KeySeedPair, pair.ID),
		fmt.Sprintf(KeyUserSeeds, pair.UserID),
	}

	activeID, err := createSeedScript.Run(ctx, s.client, keys,
		pair.ID,
		pair.UserID,
		pair.ServerSeed,
		pair.ServerSeedHash,
		pair.ClientSeed,
		pair.CreatedAt.UTC().Format(time.RFC3339Nano),
		pair.CreatedAt.UnixMicro(),
	).Text()
	if err != nil {
		return nil, fmt.Errorf("failed to create seed pair: %w", scriptError(err))
	}

	return s.GetSeedPair(ctx, activeID)
}

func (s *RedisService) GetActiveSeedPair(ctx context.Context, userID int64) (*models.SeedPair, error) {
	seedID, err := s.client.Get(ctx, fmt.Sprintf(KeyUserActiveSeed, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("active seed for user %d: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active seed: %w", err)
	}

	return s.GetSeedPair(ctx, seedID)
}

func (s *RedisService) GetSeedPair(ctx context.Context, seedID string) (*models.SeedPair, error) {
	fields, err := s.client.HGetAll(ctx, fmt.Sprintf(KeySeedPair, seedID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get seed pair: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("seed pair %s: %w", seedID, models.ErrNotFound)
	}

	return parseSeedPair(fields)
}

func parseSeedPair(fields map[string]string) (*models.SeedPair, error) {
	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seed pair %s: bad user_id: %w", fields["id"], err)
	}
	nonce, err := strconv.ParseUint(fields["nonce"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("seed pair %s: bad nonce: %w", fields["id"], err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("seed pair %s: bad created_at: %w", fields["id"], err)
	}

	pair := &models.SeedPair{
		ID:             fields["id"],
		UserID:         userID,
		ServerSeed:     fields["server_seed"],
		ServerSeedHash: fields["server_seed_hash"],
		ClientSeed:     fields["client_seed"],
		Nonce:          nonce,
		Active:         fields["active"] == "1",
		CreatedAt:      createdAt,
	}
	if v := fields["retired_at"]; v != "" {
		retiredAt, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("seed pair %s: bad retired_at: %w", pair.ID, err)
		}
		pair.RetiredAt = &retiredAt
	}
	return pair, nil
}

var advanceNonceScript = redis.NewScript(`
	local nonce = redis.call("HGET", KEYS[1], "nonce")
	if not nonce then
		return redis.error_reply("NOTFOUND seed pair")
	end
	if redis.call("HGET", KEYS[1], "active") ~= "1" then
		return redis.error_reply("CONFLICT seed pair is retired")
	end
	if nonce ~= ARGV[1] then
		return redis.error_reply("CONFLICT nonce already advanced")
	end
	return redis.call("HINCRBY", KEYS[1], "nonce", 1)
`)

func (s *RedisService) AdvanceNonce(ctx context.Context, seedID string, expected uint64) (uint64, error) {
	key := fmt.Sprintf(KeySeedPair, seedID)

	next, err := advanceNonceScript.Run(ctx, s.client, []string{key}, strconv.FormatUint(expected, 10)).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to advance nonce: %w", scriptError(err))
	}
	return uint64(next), nil
}

var rotateSeedScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) ~= ARGV[1] then
		return redis.error_reply("CONFLICT seed pair is no longer active")
	end

	redis.call("HSET", KEYS[2], "active", "0", "retired_at", ARGV[2])
	redis.call("HSET", KEYS[3],
		"id", ARGV[3],
		"user_id", ARGV[4],
		"server_seed", ARGV[5],
		"server_seed_hash", ARGV[6],
		"client_seed", ARGV[7],
		"nonce", "0",
		"active", "1",
		"created_at", ARGV[8])
	redis.call("SET", KEYS[1], ARGV[3])
	redis.call("ZADD", KEYS[4], ARGV[9], ARGV[3])
	return "OK"
`)

func (s *RedisService) RotateSeedPair(ctx context.Context, retiredID string, next *models.SeedPair) error {
	keys := []string{
		fmt.Sprintf(KeyUserActiveSeed, next.UserID),
		fmt.Sprintf(KeySeedPair, retiredID),
		fmt.Sprintf(KeySeedPair, next.ID),
		fmt.Sprintf(KeyUserSeeds, next.UserID),
	}

	err := rotateSeedScript.Run(ctx, s.client, keys,
		retiredID,
		next.CreatedAt.UTC().Format(time.RFC3339Nano),
		next.ID,
		next.UserID,
		next.ServerSeed,
		next.ServerSeedHash,
		next.ClientSeed,
		next.CreatedAt.UTC().Format(time.RFC3339Nano),
		next.CreatedAt.UnixMicro(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to rotate seed pair: %w", scriptError(err))
	}
	return nil
}

// settleScript checks the active pointer, the nonce and the wallet version
// before applying any write, so a failed check leaves nothing behind.
var settleScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) ~= ARGV[1] then
		return redis.error_reply("CONFLICT seed pair is no longer active")
	end
	if redis.call("HGET", KEYS[2], "nonce") ~= ARGV[2] then
		return redis.error_reply("CONFLICT nonce already advanced")
	end
	if redis.call("HGET", KEYS[3], "version") ~= ARGV[3] then
		return redis.error_reply("CONFLICT wallet version changed")
	end
	if redis.call("EXISTS", KEYS[5]) == 1 then
		return redis.error_reply("CONFLICT nonce already settled")
	end
	if redis.call("SETNX", KEYS[4], ARGV[7]) == 0 then
		return redis.error_reply("duplicate bet id")
	end

	redis.call("SET", KEYS[5], ARGV[9])
	redis.call("HINCRBY", KEYS[2], "nonce", 1)
	redis.call("HSET", KEYS[3],
		"balance", ARGV[4],
		"total_wagered", ARGV[5],
		"total_won", ARGV[6])
	local version = redis.call("HINCRBY", KEYS[3], "version", 1)
	redis.call("ZADD", KEYS[6], ARGV[8], ARGV[9])
	return version
`)

func (s *RedisService) CommitSettlement(ctx context.Context, st *Settlement) (*models.Wallet, error) {
	rec := st.Record

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bet record: %w", err)
	}

	keys := []string{
		fmt.Sprintf(KeyUserActiveSeed, rec.UserID),
		fmt.Sprintf(KeySeedPair, rec.SeedID),
		fmt.Sprintf(KeyWallet, rec.UserID),
		fmt.Sprintf(KeyBet, rec.ID),
		fmt.Sprintf(KeySeedNonce, rec.SeedID, rec.Nonce),
		fmt.Sprintf(KeyUserBets, rec.UserID),
	}

	version, err := settleScript.Run(ctx, s.client, keys,
		rec.SeedID,
		strconv.FormatUint(rec.Nonce, 10),
		strconv.FormatInt(st.Wallet.Version, 10),
		st.Wallet.Balance.String(),
		st.Wallet.TotalWagered.String(),
		st.Wallet.TotalWon.String(),
		data,
		rec.CreatedAt.UnixMicro(),
		rec.ID,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", scriptError(err))
	}

	wallet := st.Wallet
	wallet.Version = version
	return &wallet, nil
}

func (s *RedisService) GetBet(ctx context.Context, betID string) (*models.BetRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyBet, betID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("bet %s: %w", betID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}

	var rec models.BetRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bet: %w", err)
	}
	return &rec, nil
}

func (s *RedisService) ListBets(ctx context.Context, userID int64, limit int) ([]*models.BetRecord, error) {
	limit = clampLimit(limit)

	betIDs, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserBets, userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bet IDs: %w", err)
	}
	if len(betIDs) == 0 {
		return []*models.BetRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(betIDs))
	for i, betID := range betIDs {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyBet, betID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	bets := make([]*models.BetRecord, 0, len(betIDs))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("bet %s listed but unreadable: %w", betIDs[i], err)
		}

		var rec models.BetRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bet %s: %w", betIDs[i], err)
		}
		bets = append(bets, &rec)
	}

	return bets, nil
}

func (s *RedisService) GetGameConfig(ctx context.Context, gameType models.GameType) (*models.GameConfig, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyGameConfig, gameType)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("game config %s: %w", gameType, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game config: %w", err)
	}

	var cfg models.GameConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return &cfg, nil
}

func (s *RedisService) SaveGameConfig(ctx context.Context, cfg *models.GameConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal game config: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(KeyGameConfig, cfg.GameType), data, 0).Err()
}

func (s *RedisService) SeedGameConfig(ctx context.Context, cfg *models.GameConfig) (bool, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal game config: %w", err)
	}

	created, err := s.client.SetNX(ctx, fmt.Sprintf(KeyGameConfig, cfg.GameType), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to seed game config: %w", err)
	}
	return created, nil
}

// rateLimitScript counts a hit and makes sure the counter expires, even if
// an earlier window left it without a TTL.
var rateLimitScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 or redis.call("PTTL", KEYS[1]) < 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return count
`)

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := rateLimitScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return count <= int64(limit), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
