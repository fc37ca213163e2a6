package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, 100)

	status, _ := srv.do(t, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK {
		t.Errorf("Expected healthz 200, got %d", status)
	}

	status, _ = srv.do(t, http.MethodGet, "/api/games/balance", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", status)
	}

	status, _ = srv.do(t, http.MethodGet, "/api/games/balance", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401 with bad token, got %d", status)
	}
}

func TestDevTokenFlow(t *testing.T) {
	srv := newTestServer(t, 100)

	status, body := srv.do(t, http.MethodPost, "/auth/dev-token", "", map[string]any{"user_id": 7})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("Expected a token")
	}
	if seed := obj(t, body, "seed"); seed["server_seed"] != nil {
		t.Error("Active seed must not disclose its server seed")
	}

	status, body = srv.do(t, http.MethodGet, "/api/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	if body["user_id"] != float64(7) {
		t.Errorf("Expected user_id 7, got %v", body["user_id"])
	}
	if balance := dec(t, obj(t, body, "wallet")["balance"]); !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected starting balance 100, got %s", balance)
	}

	status, body = srv.do(t, http.MethodPost, "/auth/dev-token", "", map[string]any{})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing user_id, got %d", status)
	}
	if fields, ok := body["fields"].(map[string]any); !ok || fields["UserID"] != "required" {
		t.Errorf("Expected UserID required field error, got %v", body["fields"])
	}
}

func TestPlayRoulette(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 1)

	bet := map[string]any{"bets": []map[string]any{{"type": "red", "amount": "1"}}}

	status, body := srv.do(t, http.MethodPost, "/api/games/roulette/play", token, bet)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	first := obj(t, body, "result")
	if first["game_type"] != "roulette" {
		t.Errorf("Expected roulette result, got %v", first["game_type"])
	}
	if first["auditable"] != true {
		t.Error("Fair mode result should be auditable")
	}

	wager := dec(t, first["wager"])
	payout := dec(t, first["payout"])
	balance := dec(t, first["new_balance"])
	if !balance.Equal(decimal.NewFromInt(100).Sub(wager).Add(payout)) {
		t.Errorf("Balance %s does not match 100 - %s + %s", balance, wager, payout)
	}

	status, body = srv.do(t, http.MethodPost, "/api/games/bet", token, map[string]any{
		"game_type": "roulette",
		"bets":      []map[string]any{{"type": "straight", "numbers": []int{0}, "amount": "1"}},
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	second := obj(t, body, "result")
	if second["nonce"].(float64) != first["nonce"].(float64)+1 {
		t.Errorf("Expected nonce to advance by one, got %v then %v", first["nonce"], second["nonce"])
	}

	status, body = srv.do(t, http.MethodGet, "/api/games/history?limit=10", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["count"] != float64(2) {
		t.Errorf("Expected 2 history records, got %v", body["count"])
	}
}

func TestPlayErrorStatuses(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 1)

	status, body := srv.do(t, http.MethodPost, "/api/games/crash/play", token, map[string]any{
		"amount":             "1",
		"cashout_multiplier": "1.00",
	})
	expectError(t, status, body, http.StatusBadRequest, string(models.KindInvalidTarget))

	status, body = srv.do(t, http.MethodPost, "/api/games/crash/play", token, map[string]any{
		"amount":             "500",
		"cashout_multiplier": "2",
	})
	expectError(t, status, body, http.StatusPaymentRequired, string(models.KindInsufficientFunds))

	status, body = srv.do(t, http.MethodPost, "/api/games/slots/play", token, "{")
	expectError(t, status, body, http.StatusBadRequest, string(models.KindInvalidWager))

	fresh := srv.rawToken(t, 2)
	status, body = srv.do(t, http.MethodPost, "/api/games/slots/play", fresh, map[string]any{"amount": "1"})
	expectError(t, status, body, http.StatusPreconditionFailed, string(models.KindNoActiveSeed))

	status, body = srv.do(t, http.MethodPost, "/api/games/bet", token, map[string]any{
		"game_type": "mines",
		"amount":    "1",
	})
	expectError(t, status, body, http.StatusServiceUnavailable, string(models.KindGameUnavailable))

	cfg, err := srv.configs.Get(context.Background(), models.GameTypeSlots)
	if err != nil {
		t.Fatalf("Failed to get slots config: %v", err)
	}
	disabled := *cfg
	disabled.Active = false
	if err := srv.configs.Update(context.Background(), &disabled); err != nil {
		t.Fatalf("Failed to disable slots: %v", err)
	}

	status, body = srv.do(t, http.MethodPost, "/api/games/slots/play", token, map[string]any{"amount": "1"})
	expectError(t, status, body, http.StatusServiceUnavailable, string(models.KindGameUnavailable))

	status, body = srv.do(t, http.MethodGet, "/api/games/balance", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if balance := dec(t, obj(t, body, "balance")["balance"]); !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Rejected bets must not move the balance, got %s", balance)
	}
}

func TestRotateAndVerifyBet(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 1)

	status, body := srv.do(t, http.MethodPost, "/api/games/slots/play", token, map[string]any{"amount": "1"})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	betID, _ := obj(t, body, "result")["bet_id"].(string)
	if betID == "" {
		t.Fatal("Expected a bet id")
	}

	status, body = srv.do(t, http.MethodGet, "/api/bets/"+betID+"/verify", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	if obj(t, body, "verification")["disclosed"] != false {
		t.Error("Bet on the active pair must not be disclosed yet")
	}

	status, body = srv.do(t, http.MethodPost, "/api/seeds/rotate", token, map[string]any{"client_seed": "my-lucky-seed"})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	seeds := obj(t, body, "seeds")
	if obj(t, seeds, "retired")["server_seed"] == nil {
		t.Error("Retired pair should reveal its server seed")
	}
	if active := obj(t, seeds, "active"); active["client_seed"] != "my-lucky-seed" {
		t.Errorf("Expected new client seed, got %v", active["client_seed"])
	}

	status, body = srv.do(t, http.MethodGet, "/api/bets/"+betID+"/verify", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	v := obj(t, body, "verification")
	if v["disclosed"] != true || v["commitment_valid"] != true || v["outcome_matches"] != true {
		t.Errorf("Expected a disclosed, matching verification, got %v", v)
	}

	other := srv.token(t, 2)
	status, body = srv.do(t, http.MethodGet, "/api/bets/"+betID, other, nil)
	expectError(t, status, body, http.StatusNotFound, "not_found")

	status, body = srv.do(t, http.MethodPost, "/api/seeds/rotate", token, map[string]any{"client_seed": ""})
	if status != http.StatusOK {
		t.Errorf("Empty client seed should fall back to a generated one, got %d (%v)", status, body)
	}
}

func TestVerifyGameEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 1)

	status, body := srv.do(t, http.MethodPost, "/api/games/verify", token, map[string]any{
		"game_type":   "crash",
		"server_seed": "server-secret",
		"client_seed": "client-seed",
		"nonce":       1,
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	v := obj(t, body, "verification")
	crash := obj(t, obj(t, v, "outcome"), "crash")
	if point := dec(t, crash["crash_point"]); !point.Equal(decimal.RequireFromString("3.48")) {
		t.Errorf("Expected crash point 3.48, got %s", point)
	}

	status, body = srv.do(t, http.MethodPost, "/api/games/verify", token, map[string]any{"game_type": "crash"})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing seeds, got %d (%v)", status, body)
	}
}

func TestGameConfigEndpoint(t *testing.T) {
	srv := newTestServer(t, 100)
	token := srv.token(t, 1)

	status, body := srv.do(t, http.MethodGet, "/api/games/config/slots", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, body)
	}
	cfg := obj(t, body, "config")
	if cfg["auditable"] != true {
		t.Error("Default slots config should be auditable")
	}
	if _, ok := cfg["paytable"].(map[string]any); !ok {
		t.Errorf("Expected slots paytable, got %v", cfg["paytable"])
	}
	if _, ok := cfg["rng_mode"]; ok {
		t.Error("Public config should not expose rng_mode")
	}

	status, body = srv.do(t, http.MethodGet, "/api/games/config/mines", token, nil)
	expectError(t, status, body, http.StatusServiceUnavailable, string(models.KindGameUnavailable))
}

func TestBetRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)
	token := srv.token(t, 1)

	for i := 0; i < 2; i++ {
		status, body := srv.do(t, http.MethodPost, "/api/games/slots/play", token, map[string]any{"amount": "1"})
		if status != http.StatusOK {
			t.Fatalf("Bet %d: expected 200, got %d (%v)", i, status, body)
		}
	}

	status, body := srv.do(t, http.MethodPost, "/api/games/slots/play", token, map[string]any{"amount": "1"})
	if status != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d (%v)", status, body)
	}

	status, _ = srv.do(t, http.MethodGet, "/api/games/balance", token, nil)
	if status != http.StatusOK {
		t.Errorf("Read routes should not be rate limited, got %d", status)
	}
}
