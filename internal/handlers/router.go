package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fairplay-backend/internal/middleware"
	"fairplay-backend/internal/services"
)

type RouterDeps struct {
	Engine  *services.GameEngine
	Seeds   *services.SeedRegistry
	Configs *services.GameConfigProvider
	Store   services.Store
	JWT     *services.JWTService
	Hub     *WebSocketHub
	Logger  *zap.Logger

	Production    bool
	BetRateLimit  int
	BetRateWindow time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gameHandler := NewGameHandler(deps.Engine, deps.Configs)
	userHandler := NewUserHandler(deps.Seeds, deps.Engine)
	wsHandler := NewWebSocketHandler(deps.Engine, deps.Hub, deps.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !deps.Production {
		authHandler := NewAuthHandler(deps.JWT, deps.Seeds)
		router.POST("/auth/dev-token", authHandler.IssueDevToken)
	}

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(deps.JWT))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/ws", wsHandler.HandleWebSocket)

		seeds := protected.Group("/seeds")
		{
			seeds.GET("", userHandler.GetSeeds)
			seeds.POST("/rotate", userHandler.RotateSeed)
			seeds.GET("/:id", userHandler.GetSeedPair)
		}

		games := protected.Group("/games")
		{
			games.GET("/balance", gameHandler.GetBalance)
			games.GET("/history", gameHandler.GetGameHistory)
			games.GET("/config/:type", gameHandler.GetGameConfig)
			games.POST("/verify", gameHandler.VerifyGame)

			play := games.Group("")
			play.Use(middleware.RateLimitMiddleware(deps.Store, "bet", deps.BetRateLimit, deps.BetRateWindow, deps.Logger))
			{
				play.POST("/bet", gameHandler.PlaceBet)
				play.POST("/crash/play", gameHandler.PlayCrash)
				play.POST("/roulette/play", gameHandler.PlayRoulette)
				play.POST("/slots/play", gameHandler.PlaySlots)
			}
		}

		bets := protected.Group("/bets")
		{
			bets.GET("/:id", gameHandler.GetBet)
			bets.GET("/:id/verify", gameHandler.VerifyBet)
		}
	}

	return router
}
