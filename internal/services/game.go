package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/monitoring"
)

const (
	DefaultSettleAttempts      = 4
	DefaultSettleRetryInterval = 15 * time.Millisecond
)

// GameEngine is the settlement ledger: it turns a bet request into an
// outcome, a payout and one atomic write of nonce, wallet and bet record.
type GameEngine struct {
	store       Store
	seeds       *SeedRegistry
	configs     *GameConfigProvider
	broadcaster Broadcaster
	sampler     games.Sampler
	logger      *zap.Logger

	maxAttempts   uint
	retryInterval time.Duration
	now           func() time.Time
}

type EngineOption func(*GameEngine)

func WithBroadcaster(b Broadcaster) EngineOption {
	return func(ge *GameEngine) { ge.broadcaster = b }
}

// WithSampler replaces the random source used by controlled-mode games.
func WithSampler(s games.Sampler) EngineOption {
	return func(ge *GameEngine) { ge.sampler = s }
}

func WithRetry(maxAttempts uint, interval time.Duration) EngineOption {
	return func(ge *GameEngine) {
		if maxAttempts > 0 {
			ge.maxAttempts = maxAttempts
		}
		if interval > 0 {
			ge.retryInterval = interval
		}
	}
}

func NewGameEngine(store Store, seeds *SeedRegistry, configs *GameConfigProvider, logger *zap.Logger, opts ...EngineOption) *GameEngine {
	ge := &GameEngine{
		store:         store,
		seeds:         seeds,
		configs:       configs,
		broadcaster:   noopBroadcaster{},
		sampler:       games.DefaultSampler,
		logger:        logger,
		maxAttempts:   DefaultSettleAttempts,
		retryInterval: DefaultSettleRetryInterval,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(ge)
	}
	return ge
}

// SettleBet validates req, then settles it for userID. A settlement that
// loses a race on the nonce or the wallet is recomputed from scratch with
// fresh reads, up to the configured number of attempts.
func (ge *GameEngine) SettleBet(ctx context.Context, userID int64, req *models.BetRequest) (*models.BetResult, error) {
	if err := req.Validate(); err != nil {
		ge.recordFailure(req.GameType, err)
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ge.retryInterval
	b.MaxInterval = 8 * ge.retryInterval

	attempt := 0
	out, err := backoff.Retry(ctx, func() (*settled, error) {
		attempt++
		res, err := ge.settleOnce(ctx, userID, req)
		if err == nil {
			return res, nil
		}
		if models.KindOf(err).Retryable() {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(ge.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			monitoring.SettlementRetries.WithLabelValues(string(req.GameType)).Inc()
			ge.logger.Warn("settlement conflict, retrying",
				zap.Int64("user_id", userID),
				zap.String("game", string(req.GameType)),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)
	if err != nil {
		var be *models.BetError
		if !errors.As(err, &be) {
			err = models.WrapBetError(models.KindInternalFault, err, "settlement aborted")
		}
		ge.recordFailure(req.GameType, err)
		return nil, err
	}

	result := out.result
	monitoring.BetsSettled.WithLabelValues(string(result.GameType), string(result.RNGMode), winLabel(result.IsWin)).Inc()

	ge.broadcaster.BroadcastBetSettled(userID, result)
	ge.broadcaster.BroadcastBalanceUpdate(userID, out.wallet.Response())

	return result, nil
}

type settled struct {
	result *models.BetResult
	wallet *models.Wallet
}

// settleOnce is a single attempt. Nothing is written unless the final commit
// succeeds, so every error leaves balance, nonce and history untouched.
func (ge *GameEngine) settleOnce(ctx context.Context, userID int64, req *models.BetRequest) (*settled, error) {
	wager := req.Wager()

	wallet, err := ge.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load wallet")
	}
	if wallet.Balance.LessThan(wager) {
		return nil, models.NewBetError(models.KindInsufficientFunds,
			"insufficient balance: have %s, need %s", wallet.Balance.StringFixed(2), wager.StringFixed(2))
	}

	cfg, err := ge.configs.Playable(ctx, req.GameType)
	if err != nil {
		return nil, err
	}
	if err := checkLimits(cfg, wager); err != nil {
		return nil, err
	}

	pair, err := ge.seeds.GetActiveSeedPair(ctx, userID)
	if err != nil {
		return nil, err
	}

	seeds := fairness.Seeds{ServerSeed: pair.ServerSeed, ClientSeed: pair.ClientSeed, Nonce: pair.Nonce}
	gen := games.NewGenerator(cfg.RNGMode, seeds, ge.sampler)

	outcome, err := games.Play(gen, cfg, req)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to compute outcome")
	}

	rec := &models.BetRecord{
		ID:             models.GenerateBetID(),
		UserID:         userID,
		GameType:       req.GameType,
		SeedID:         pair.ID,
		Nonce:          pair.Nonce,
		Wager:          outcome.Wager,
		Payout:         outcome.Payout,
		Multiplier:     outcome.Multiplier,
		Outcome:        outcome.Outcome,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		IsWin:          outcome.IsWin,
		RNGMode:        gen.Mode(),
		Auditable:      gen.Auditable(),
		Rules:          cfg.Rules(),
		CreatedAt:      ge.now(),
	}

	next := *wallet
	next.Balance = wallet.Balance.Sub(outcome.Wager).Add(outcome.Payout)
	next.TotalWagered = wallet.TotalWagered.Add(outcome.Wager)
	next.TotalWon = wallet.TotalWon.Add(outcome.Payout)

	updated, err := ge.store.CommitSettlement(ctx, &Settlement{Record: rec, Wallet: next})
	if errors.Is(err, models.ErrConflict) {
		return nil, models.WrapBetError(models.KindConcurrentModification, err, "bet raced another settlement")
	}
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to commit settlement")
	}

	ge.logger.Debug("bet settled",
		zap.Int64("user_id", userID),
		zap.String("bet_id", rec.ID),
		zap.String("game", string(rec.GameType)),
		zap.String("rng_mode", string(rec.RNGMode)),
		zap.Uint64("nonce", rec.Nonce),
		zap.String("wager", rec.Wager.String()),
		zap.String("payout", rec.Payout.String()),
		zap.String("balance", updated.Balance.String()))

	return &settled{result: models.NewBetResult(rec, updated.Balance), wallet: updated}, nil
}

func checkLimits(cfg *models.GameConfig, wager decimal.Decimal) error {
	if cfg.MinWager.IsPositive() && wager.LessThan(cfg.MinWager) {
		return models.NewBetError(models.KindInvalidWager, "minimum %s wager is %s", cfg.GameType, cfg.MinWager)
	}
	if cfg.MaxWager.IsPositive() && wager.GreaterThan(cfg.MaxWager) {
		return models.NewBetError(models.KindInvalidWager, "maximum %s wager is %s", cfg.GameType, cfg.MaxWager)
	}
	return nil
}

func (ge *GameEngine) recordFailure(gameType models.GameType, err error) {
	kind := models.KindOf(err)
	monitoring.SettlementFailures.WithLabelValues(string(gameType), string(kind)).Inc()

	if kind == models.KindInternalFault {
		ge.logger.Error("settlement failed", zap.String("game", string(gameType)), zap.Error(err))
		return
	}
	ge.logger.Debug("bet rejected",
		zap.String("game", string(gameType)),
		zap.String("kind", string(kind)),
		zap.Error(err))
}

func winLabel(win bool) string {
	if win {
		return "win"
	}
	return "loss"
}

func (ge *GameEngine) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := ge.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load wallet")
	}
	return wallet, nil
}

func (ge *GameEngine) ListBets(ctx context.Context, userID int64, limit int) ([]*models.BetRecord, error) {
	bets, err := ge.store.ListBets(ctx, userID, limit)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load bet history")
	}
	return bets, nil
}

func (ge *GameEngine) GetBet(ctx context.Context, userID int64, betID string) (*models.BetRecord, error) {
	rec, err := ge.store.GetBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, models.ErrNotFound
	}
	return rec, nil
}

// VerifyBet recomputes a settled bet from its seed pair. The secret is only
// used, and only disclosed, once the pair has been retired. Controlled-mode
// bets are reported as not auditable.
func (ge *GameEngine) VerifyBet(ctx context.Context, userID int64, betID string) (*models.Verification, error) {
	rec, err := ge.GetBet(ctx, userID, betID)
	if err != nil {
		return nil, err
	}

	v := &models.Verification{
		BetID:           rec.ID,
		Auditable:       rec.Auditable,
		ServerSeedHash:  rec.ServerSeedHash,
		ClientSeed:      rec.ClientSeed,
		Nonce:           rec.Nonce,
		RecordedOutcome: rec.Outcome,
	}
	if !rec.Auditable {
		return v, nil
	}

	pair, err := ge.seeds.GetSeedPair(ctx, rec.SeedID)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load seed pair")
	}
	if pair.Active {
		return v, nil
	}

	v.Disclosed = true
	v.ServerSeed = pair.ServerSeed
	v.CommitmentValid = fairness.VerifyCommitment(pair.ServerSeed, rec.ServerSeedHash)

	cfg, err := ge.replayConfig(ctx, rec)
	if err != nil {
		return nil, err
	}
	req, err := games.RequestFromRecord(rec)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to rebuild bet")
	}

	seeds := fairness.Seeds{ServerSeed: pair.ServerSeed, ClientSeed: rec.ClientSeed, Nonce: rec.Nonce}
	v.RoundHash = seeds.HashHex()
	replayed, err := games.Replay(seeds, cfg, req)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to replay bet")
	}

	v.RecomputedOutcome = &replayed.Outcome
	v.OutcomeMatches = games.SameOutcome(rec.Outcome, replayed.Outcome)
	return v, nil
}

// replayConfig returns the rules rec was settled under. Records written
// before rule snapshots existed fall back to the current config.
func (ge *GameEngine) replayConfig(ctx context.Context, rec *models.BetRecord) (*models.GameConfig, error) {
	if rec.Rules != nil {
		return rec.Rules.ReplayConfig(rec.GameType), nil
	}
	cfg, err := ge.configs.Get(ctx, rec.GameType)
	if err != nil {
		return nil, models.WrapBetError(models.KindInternalFault, err, "failed to load game config")
	}
	return cfg, nil
}

// VerifyGame recomputes an outcome from seeds the caller supplies, with no
// stored state involved beyond the game's current config.
func (ge *GameEngine) VerifyGame(ctx context.Context, req *models.VerifyRequest) (*games.Result, string, error) {
	bet := &models.BetRequest{
		GameType:      req.GameType,
		Amount:        decimal.NewFromInt(1),
		CashoutTarget: req.CashoutMultiplier,
		Bets:          req.Bets,
	}
	if req.GameType == models.GameTypeCrash && bet.CashoutTarget.IsZero() {
		bet.CashoutTarget = decimal.NewFromInt(2)
	}
	if err := bet.Validate(); err != nil {
		return nil, "", err
	}

	cfg, err := ge.configs.Get(ctx, req.GameType)
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", models.NewBetError(models.KindGameUnavailable, "%s is not configured", req.GameType)
	}
	if err != nil {
		return nil, "", models.WrapBetError(models.KindInternalFault, err, "failed to load game config")
	}

	seeds := fairness.Seeds{ServerSeed: req.ServerSeed, ClientSeed: req.ClientSeed, Nonce: req.Nonce}
	res, err := games.Replay(seeds, cfg, bet)
	if err != nil {
		return nil, "", models.WrapBetError(models.KindInternalFault, err, "failed to replay outcome")
	}
	return res, fairness.Commit(req.ServerSeed), nil
}
