package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fairplay-backend/internal/models"
)

type walletRow struct {
	UserID       int64           `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Balance      decimal.Decimal `gorm:"column:balance;type:text;not null"`
	TotalWagered decimal.Decimal `gorm:"column:total_wagered;type:text;not null"`
	TotalWon     decimal.Decimal `gorm:"column:total_won;type:text;not null"`
	Version      int64           `gorm:"column:version;not null;default:0"`
}

type seedPairRow struct {
	ID             string     `gorm:"column:id;type:varchar(64);primaryKey"`
	UserID         int64      `gorm:"column:user_id;not null;index"`
	ServerSeed     string     `gorm:"column:server_seed;type:varchar(128);not null"`
	ServerSeedHash string     `gorm:"column:server_seed_hash;type:varchar(64);not null"`
	ClientSeed     string     `gorm:"column:client_seed;type:varchar(64);not null"`
	Nonce          uint64     `gorm:"column:nonce;not null;default:0"`
	Active         bool       `gorm:"column:active;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
	RetiredAt      *time.Time `gorm:"column:retired_at"`
}

type betRow struct {
	ID             string          `gorm:"column:id;type:varchar(64);primaryKey"`
	UserID         int64           `gorm:"column:user_id;not null;index:idx_bets_user_created,priority:1"`
	GameType       string          `gorm:"column:game_type;type:varchar(16);not null"`
	SeedID         string          `gorm:"column:seed_id;type:varchar(64);not null;uniqueIndex:uq_bets_seed_nonce,priority:1"`
	Nonce          uint64          `gorm:"column:nonce;not null;uniqueIndex:uq_bets_seed_nonce,priority:2"`
	Wager          decimal.Decimal `gorm:"column:wager;type:text;not null"`
	Payout         decimal.Decimal `gorm:"column:payout;type:text;not null"`
	Multiplier     decimal.Decimal `gorm:"column:multiplier;type:text;not null"`
	Outcome        string          `gorm:"column:outcome;type:text;not null"`
	ServerSeedHash string          `gorm:"column:server_seed_hash;type:varchar(64);not null"`
	ClientSeed     string          `gorm:"column:client_seed;type:varchar(64);not null"`
	IsWin          bool            `gorm:"column:is_win;not null"`
	RNGMode        string          `gorm:"column:rng_mode;type:varchar(16);not null"`
	Auditable      bool            `gorm:"column:auditable;not null"`
	Rules          string          `gorm:"column:rules;type:text"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null;index:idx_bets_user_created,priority:2"`
}

type gameConfigRow struct {
	GameType string `gorm:"column:game_type;type:varchar(16);primaryKey"`
	Data     string `gorm:"column:data;type:text;not null"`
}

func (walletRow) TableName() string     { return "wallets" }
func (seedPairRow) TableName() string   { return "seed_pairs" }
func (betRow) TableName() string        { return "bet_records" }
func (gameConfigRow) TableName() string { return "game_configs" }

// SQLStore keeps the ledger in SQLite through gorm. Settlement runs in one
// database transaction guarded by conditional updates on the nonce and the
// wallet version.
type SQLStore struct {
	db              *gorm.DB
	startingBalance decimal.Decimal

	// Rate-limit counters live in process; SQLite has no cheap expiring keys.
	limits   *cache.Cache
	limitsMu sync.Mutex
}

// NewSQLStore opens (or creates) the SQLite database at path. Use
// ":memory:" for a throwaway database.
func NewSQLStore(path string, startingBalance decimal.Decimal) (*SQLStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and ":memory:" is
	// per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&walletRow{}, &seedPairRow{}, &betRow{}, &gameConfigRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	// At most one active pair per user.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_seed_pairs_active_user ON seed_pairs(user_id) WHERE active`).Error; err != nil {
		return nil, fmt.Errorf("failed to create active seed index: %w", err)
	}

	return &SQLStore{
		db:              db,
		startingBalance: startingBalance,
		limits:          cache.New(DefaultRateWindow, 2*DefaultRateWindow),
	}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	db := s.db.WithContext(ctx)

	row := walletRow{
		UserID:       userID,
		Balance:      s.startingBalance,
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	var stored walletRow
	if err := db.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", notFound(err))
	}
	return stored.model(), nil
}

func (r *walletRow) model() *models.Wallet {
	return &models.Wallet{
		UserID:       r.UserID,
		Balance:      r.Balance,
		TotalWagered: r.TotalWagered,
		TotalWon:     r.TotalWon,
		Version:      r.Version,
	}
}

func (s *SQLStore) CreateSeedPair(ctx context.Context, pair *models.SeedPair) (*models.SeedPair, error) {
	db := s.db.WithContext(ctx)

	row := seedRowFrom(pair)
	row.Active = true
	row.Nonce = 0
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create seed pair: %w", err)
	}

	return s.GetActiveSeedPair(ctx, pair.UserID)
}

func (s *SQLStore) GetActiveSeedPair(ctx context.Context, userID int64) (*models.SeedPair, error) {
	var row seedPairRow
	err := s.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("active seed for user %d: %w", userID, notFound(err))
	}
	return row.model(), nil
}

func (s *SQLStore) GetSeedPair(ctx context.Context, seedID string) (*models.SeedPair, error) {
	var row seedPairRow
	if err := s.db.WithContext(ctx).Where("id = ?", seedID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("seed pair %s: %w", seedID, notFound(err))
	}
	return row.model(), nil
}

func (s *SQLStore) AdvanceNonce(ctx context.Context, seedID string, expected uint64) (uint64, error) {
	res := s.db.WithContext(ctx).Model(&seedPairRow{}).
		Where("id = ? AND nonce = ? AND active = ?", seedID, expected, true).
		Update("nonce", gorm.Expr("nonce + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to advance nonce: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetSeedPair(ctx, seedID); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("seed pair %s nonce %d: %w", seedID, expected, models.ErrConflict)
	}
	return expected + 1, nil
}

func (s *SQLStore) RotateSeedPair(ctx context.Context, retiredID string, next *models.SeedPair) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		retiredAt := next.CreatedAt
		res := tx.Model(&seedPairRow{}).
			Where("id = ? AND user_id = ? AND active = ?", retiredID, next.UserID, true).
			Updates(map[string]any{"active": false, "retired_at": retiredAt})
		if res.Error != nil {
			return fmt.Errorf("failed to retire seed pair: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("seed pair %s is no longer active: %w", retiredID, models.ErrConflict)
		}

		row := seedRowFrom(next)
		row.Active = true
		row.Nonce = 0
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create seed pair: %w", err)
		}
		return nil
	})
}

func seedRowFrom(p *models.SeedPair) *seedPairRow {
	return &seedPairRow{
		ID:             p.ID,
		UserID:         p.UserID,
		ServerSeed:     p.ServerSeed,
		ServerSeedHash: p.ServerSeedHash,
		ClientSeed:     p.ClientSeed,
		Nonce:          p.Nonce,
		Active:         p.Active,
		CreatedAt:      p.CreatedAt,
		RetiredAt:      p.RetiredAt,
	}
}

func (r *seedPairRow) model() *models.SeedPair {
	return &models.SeedPair{
		ID:             r.ID,
		UserID:         r.UserID,
		ServerSeed:     r.ServerSeed,
		ServerSeedHash: r.ServerSeedHash,
		ClientSeed:     r.ClientSeed,
		Nonce:          r.Nonce,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
		RetiredAt:      r.RetiredAt,
	}
}

func (s *SQLStore) CommitSettlement(ctx context.Context, st *Settlement) (*models.Wallet, error) {
	rec := st.Record

	row, err := betRowFrom(rec)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&seedPairRow{}).
			Where("id = ? AND user_id = ? AND nonce = ? AND active = ?", rec.SeedID, rec.UserID, rec.Nonce, true).
			Update("nonce", gorm.Expr("nonce + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to advance nonce: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("seed pair %s nonce %d: %w", rec.SeedID, rec.Nonce, models.ErrConflict)
		}

		res = tx.Model(&walletRow{}).
			Where("user_id = ? AND version = ?", rec.UserID, st.Wallet.Version).
			Updates(map[string]any{
				"balance":       st.Wallet.Balance,
				"total_wagered": st.Wallet.TotalWagered,
				"total_won":     st.Wallet.TotalWon,
				"version":       gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update wallet: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("wallet %d version %d: %w", rec.UserID, st.Wallet.Version, models.ErrConflict)
		}

		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to append bet record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	wallet := st.Wallet
	wallet.Version++
	return &wallet, nil
}

func betRowFrom(rec *models.BetRecord) (*betRow, error) {
	outcome, err := json.Marshal(rec.Outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	var rules []byte
	if rec.Rules != nil {
		if rules, err = json.Marshal(rec.Rules); err != nil {
			return nil, fmt.Errorf("failed to marshal rules: %w", err)
		}
	}
	return &betRow{
		ID:             rec.ID,
		UserID:         rec.UserID,
		GameType:       string(rec.GameType),
		SeedID:         rec.SeedID,
		Nonce:          rec.Nonce,
		Wager:          rec.Wager,
		Payout:         rec.Payout,
		Multiplier:     rec.Multiplier,
		Outcome:        string(outcome),
		ServerSeedHash: rec.ServerSeedHash,
		ClientSeed:     rec.ClientSeed,
		IsWin:          rec.IsWin,
		RNGMode:        string(rec.RNGMode),
		Auditable:      rec.Auditable,
		Rules:          string(rules),
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func (r *betRow) model() (*models.BetRecord, error) {
	rec := &models.BetRecord{
		ID:             r.ID,
		UserID:         r.UserID,
		GameType:       models.GameType(r.GameType),
		SeedID:         r.SeedID,
		Nonce:          r.Nonce,
		Wager:          r.Wager,
		Payout:         r.Payout,
		Multiplier:     r.Multiplier,
		ServerSeedHash: r.ServerSeedHash,
		ClientSeed:     r.ClientSeed,
		IsWin:          r.IsWin,
		RNGMode:        models.RNGMode(r.RNGMode),
		Auditable:      r.Auditable,
		CreatedAt:      r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Outcome), &rec.Outcome); err != nil {
		return nil, fmt.Errorf("bet %s: bad outcome: %w", r.ID, err)
	}
	if r.Rules != "" {
		rec.Rules = &models.RuleSnapshot{}
		if err := json.Unmarshal([]byte(r.Rules), rec.Rules); err != nil {
			return nil, fmt.Errorf("bet %s: bad rules: %w", r.ID, err)
		}
	}
	return rec, nil
}

func (s *SQLStore) GetBet(ctx context.Context, betID string) (*models.BetRecord, error) {
	var row betRow
	if err := s.db.WithContext(ctx).Where("id = ?", betID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("bet %s: %w", betID, notFound(err))
	}
	return row.model()
}

func (s *SQLStore) ListBets(ctx context.Context, userID int64, limit int) ([]*models.BetRecord, error) {
	var rows []betRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, nonce DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}

	bets := make([]*models.BetRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		bets = append(bets, rec)
	}
	return bets, nil
}

func (s *SQLStore) GetGameConfig(ctx context.Context, gameType models.GameType) (*models.GameConfig, error) {
	var row gameConfigRow
	if err := s.db.WithContext(ctx).Where("game_type = ?", string(gameType)).First(&row).Error; err != nil {
		return nil, fmt.Errorf("game config %s: %w", gameType, notFound(err))
	}

	var cfg models.GameConfig
	if err := json.Unmarshal([]byte(row.Data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLStore) SaveGameConfig(ctx context.Context, cfg *models.GameConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal game config: %w", err)
	}

	row := gameConfigRow{GameType: string(cfg.GameType), Data: string(data)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&row).Error
}

func (s *SQLStore) SeedGameConfig(ctx context.Context, cfg *models.GameConfig) (bool, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal game config: %w", err)
	}

	row := gameConfigRow{GameType: string(cfg.GameType), Data: string(data)}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("failed to seed game config: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *SQLStore) CheckRateLimit(_ context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	s.limitsMu.Lock()
	defer s.limitsMu.Unlock()

	if err := s.limits.Add(key, 1, window); err == nil {
		return limit >= 1, nil
	}
	count, err := s.limits.IncrementInt(key, 1)
	if err != nil {
		// Expired between Add and Increment.
		s.limits.Set(key, 1, window)
		count = 1
	}
	return count <= limit, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}
