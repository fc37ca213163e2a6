package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/handlers"
	"fairplay-backend/internal/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router  *gin.Engine
	jwt     *services.JWTService
	configs *services.GameConfigProvider
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	logger := zap.NewNop()

	mr := miniredis.RunT(t)
	store := services.NewRedisServiceWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), decimal.NewFromInt(100))
	t.Cleanup(func() { store.Close() })

	cfgs, err := config.LoadGameConfigs("")
	if err != nil {
		t.Fatalf("Failed to load game configs: %v", err)
	}
	configs := services.NewGameConfigProvider(store, time.Minute, logger)
	if err := configs.Seed(context.Background(), cfgs); err != nil {
		t.Fatalf("Failed to seed game configs: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := handlers.NewWebSocketHub(logger)
	go hub.Run(ctx)

	seeds := services.NewSeedRegistry(store, logger)
	engine := services.NewGameEngine(store, seeds, configs, logger, services.WithBroadcaster(hub))
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "test-secret", JWTIssuer: "fairplay"})

	router := handlers.NewRouter(handlers.RouterDeps{
		Engine:        engine,
		Seeds:         seeds,
		Configs:       configs,
		Store:         store,
		JWT:           jwtService,
		Hub:           hub,
		Logger:        logger,
		BetRateLimit:  rateLimit,
		BetRateWindow: time.Minute,
	})

	return &testServer{router: router, jwt: jwtService, configs: configs}
}

// rawToken signs a session for userID without touching any game state.
func (s *testServer) rawToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(userID, "test-session", time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// token signs a session for userID and makes sure the user has an active
// seed pair, as a client does before its first bet.
func (s *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	token := s.rawToken(t, userID)
	if status, body := s.do(t, http.MethodGet, "/api/seeds", token, nil); status != http.StatusOK {
		t.Fatalf("Failed to create seed pair: %d (%v)", status, body)
	}
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, out
}

func obj(t *testing.T, v any, key string) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Expected object, got %T", v)
	}
	child, ok := m[key].(map[string]any)
	if !ok {
		t.Fatalf("Expected object at %q, got %v", key, m[key])
	}
	return child
}

func dec(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Expected decimal string, got %T (%v)", v, v)
	}
	return decimal.RequireFromString(s)
}

func expectError(t *testing.T, status int, body map[string]any, wantStatus int, wantKind string) {
	t.Helper()
	if status != wantStatus {
		t.Errorf("Expected status %d, got %d (%v)", wantStatus, status, body)
	}
	if body["success"] != false {
		t.Errorf("Expected success=false, got %v", body["success"])
	}
	if body["error_kind"] != wantKind {
		t.Errorf("Expected error_kind %q, got %v", wantKind, body["error_kind"])
	}
}
