package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	configs    *services.GameConfigProvider
}

func NewGameHandler(gameEngine *services.GameEngine, configs *services.GameConfigProvider) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		configs:    configs,
	}
}

func (h *GameHandler) settle(c *gin.Context, req *models.BetRequest) {
	userID := c.GetInt64("user_id")

	result, err := h.gameEngine.SettleBet(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// PlaceBet accepts any game's request shape, keyed by game_type.
func (h *GameHandler) PlaceBet(c *gin.Context) {
	var req models.BetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, string(models.KindInvalidWager))
		return
	}
	h.settle(c, &req)
}

func (h *GameHandler) PlayCrash(c *gin.Context) {
	var req models.CrashPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, string(models.KindInvalidWager))
		return
	}
	h.settle(c, &models.BetRequest{
		GameType:      models.GameTypeCrash,
		Amount:        req.Amount,
		CashoutTarget: req.CashoutMultiplier,
	})
}

func (h *GameHandler) PlayRoulette(c *gin.Context) {
	var req models.RoulettePlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, string(models.KindInvalidWager))
		return
	}
	h.settle(c, &models.BetRequest{
		GameType: models.GameTypeRoulette,
		Bets:     req.Bets,
	})
}

func (h *GameHandler) PlaySlots(c *gin.Context) {
	var req models.SlotsPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, string(models.KindInvalidWager))
		return
	}
	h.settle(c, &models.BetRequest{
		GameType: models.GameTypeSlots,
		Amount:   req.Amount,
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	userID := c.GetInt64("user_id")

	wallet, err := h.gameEngine.GetWallet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": wallet.Response(),
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		limit = services.DefaultHistoryLimit
	}

	bets, err := h.gameEngine.ListBets(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bets":    bets,
		"count":   len(bets),
	})
}

func (h *GameHandler) GetBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	bet, err := h.gameEngine.GetBet(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bet":     bet,
	})
}

func (h *GameHandler) GetGameConfig(c *gin.Context) {
	gameType := models.GameType(c.Param("type"))
	if !gameType.Valid() {
		respondError(c, models.NewBetError(models.KindGameUnavailable, "unknown game type %q", gameType))
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), gameType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config":  cfg.Public(),
	})
}

// VerifyGame replays an outcome from seeds the player supplies.
func (h *GameHandler) VerifyGame(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, kindInvalidRequest)
		return
	}

	result, hash, err := h.gameEngine.VerifyGame(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"game_type":        req.GameType,
			"server_seed":      req.ServerSeed,
			"server_seed_hash": hash,
			"client_seed":      req.ClientSeed,
			"nonce":            req.Nonce,
			"outcome":          result.Outcome,
			"multiplier":       result.Multiplier,
		},
	})
}

// VerifyBet replays one of the caller's settled bets.
func (h *GameHandler) VerifyBet(c *gin.Context) {
	userID := c.GetInt64("user_id")

	v, err := h.gameEngine.VerifyBet(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": v,
	})
}
