package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != config.StoreRedis {
		t.Errorf("StoreDriver = %q, want redis", cfg.StoreDriver)
	}
	if !cfg.StartingBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("StartingBalance = %s, want 100", cfg.StartingBalance)
	}
	if cfg.SettleMaxAttempts != 4 {
		t.Errorf("SettleMaxAttempts = %d, want 4", cfg.SettleMaxAttempts)
	}
	if cfg.GameConfigTTL != 5*time.Second {
		t.Errorf("GameConfigTTL = %s, want 5s", cfg.GameConfigTTL)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := config.Load(); err == nil {
		t.Error("expected error when JWT_SECRET is empty")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := config.Load(); err == nil {
		t.Error("expected error for unknown store driver")
	}
}

func TestDefaultGameConfigs(t *testing.T) {
	cfgs, err := config.LoadGameConfigs("")
	if err != nil {
		t.Fatalf("LoadGameConfigs: %v", err)
	}
	if len(cfgs) != 3 {
		t.Fatalf("expected 3 game configs, got %d", len(cfgs))
	}

	byType := make(map[models.GameType]*models.GameConfig)
	for _, c := range cfgs {
		byType[c.GameType] = c
	}

	crash := byType[models.GameTypeCrash]
	if crash == nil || !crash.HouseEdge.Equal(decimal.RequireFromString("0.01")) {
		t.Errorf("crash house edge not loaded: %+v", crash)
	}

	slots := byType[models.GameTypeSlots]
	if slots == nil || slots.Paytable == nil {
		t.Fatal("slots paytable missing")
	}
	if len(slots.Paytable.Symbols) != 8 || len(slots.Paytable.Paylines) != 5 {
		t.Errorf("unexpected paytable shape: %d symbols, %d lines",
			len(slots.Paytable.Symbols), len(slots.Paytable.Paylines))
	}
	if got := slots.Paytable.Units("diamond", 5); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("diamond x5 = %s, want 1000", got)
	}
}

func TestParseGameConfigsRejectsInvalid(t *testing.T) {
	dup := []byte(`
games:
  - type: crash
    active: true
    house_edge: 0.01
  - type: crash
    active: false
`)
	if _, err := config.ParseGameConfigs(dup); err == nil {
		t.Error("duplicate game type should be rejected")
	}

	noPaytable := []byte(`
games:
  - type: slots
    active: true
`)
	if _, err := config.ParseGameConfigs(noPaytable); err == nil {
		t.Error("slots without paytable should be rejected")
	}

	cfgs, err := config.ParseGameConfigs([]byte("games:\n  - type: roulette\n    active: true\n"))
	if err != nil {
		t.Fatalf("ParseGameConfigs: %v", err)
	}
	if cfgs[0].RNGMode != models.RNGModeFair {
		t.Errorf("rng mode should default to fair, got %q", cfgs[0].RNGMode)
	}
}

func TestParseGameConfigsKeepsExactAmounts(t *testing.T) {
	data := []byte(`
games:
  - type: crash
    active: true
    house_edge: 0.0123456789012345678
    min_wager: "0.10"
    max_wager: 90071992547409930.01
  - type: slots
    active: true
    paytable:
      symbols: [cherry]
      paylines:
        - [1, 1, 1, 1, 1]
      payouts:
        cherry: [0, 0, 2.3333333333333333333, "7.5", 20]
`)
	cfgs, err := config.ParseGameConfigs(data)
	if err != nil {
		t.Fatalf("ParseGameConfigs: %v", err)
	}

	crash := cfgs[0]
	if want := decimal.RequireFromString("0.0123456789012345678"); !crash.HouseEdge.Equal(want) {
		t.Errorf("house edge = %s, want %s", crash.HouseEdge, want)
	}
	if want := decimal.RequireFromString("0.1"); !crash.MinWager.Equal(want) {
		t.Errorf("min wager = %s, want %s", crash.MinWager, want)
	}
	if want := decimal.RequireFromString("90071992547409930.01"); !crash.MaxWager.Equal(want) {
		t.Errorf("max wager = %s, want %s", crash.MaxWager, want)
	}

	units := cfgs[1].Paytable.Payouts["cherry"]
	if want := decimal.RequireFromString("2.3333333333333333333"); !units[2].Equal(want) {
		t.Errorf("run-3 units = %s, want %s", units[2], want)
	}
	if want := decimal.RequireFromString("7.5"); !units[3].Equal(want) {
		t.Errorf("run-4 units = %s, want %s", units[3], want)
	}

	bad := []byte("games:\n  - type: crash\n    house_edge: lots\n")
	if _, err := config.ParseGameConfigs(bad); err == nil {
		t.Error("non-numeric house edge should be rejected")
	}
}
