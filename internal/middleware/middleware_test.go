package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/monitoring"
	"fairplay-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *services.JWTService {
	return services.NewJWTService(&config.Config{JWTSecret: "test-secret", JWTIssuer: "fairplay"})
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := newJWT()
	token, err := jwtService.GenerateToken(42, "sess-1", time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	router := gin.New()
	router.Use(middleware.AuthMiddleware(jwtService))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id"), "session_id": c.GetString("session_id")})
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(router, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
		})
	}

	expired, err := jwtService.GenerateToken(42, "sess-1", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	if w := serve(router, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected expired token to be rejected, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	store, err := services.NewSQLStore(":memory:", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", int64(9))
		c.Next()
	})
	router.Use(middleware.RateLimitMiddleware(store, "bet", 3, time.Minute, zap.NewNop()))
	router.POST("/bet", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if w := serve(router, httptest.NewRequest(http.MethodPost, "/bet", nil)); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := serve(router, httptest.NewRequest(http.MethodPost, "/bet", nil)); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", w.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Metrics())
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := monitoring.HttpRequests.WithLabelValues(http.MethodGet, "/items/:id", "204")
	before := testutil.ToFloat64(counter)

	serve(router, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/items/2", nil))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("Expected 2 requests counted under the route template, got %v", got)
	}
}
