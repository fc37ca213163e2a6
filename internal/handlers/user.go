package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

type UserHandler struct {
	seeds      *services.SeedRegistry
	gameEngine *services.GameEngine
}

func NewUserHandler(seeds *services.SeedRegistry, gameEngine *services.GameEngine) *UserHandler {
	return &UserHandler{
		seeds:      seeds,
		gameEngine: gameEngine,
	}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt64("user_id")
	ctx := c.Request.Context()

	wallet, err := h.gameEngine.GetWallet(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.seeds.GetOrCreateActiveSeedPair(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    userID,
		"session_id": c.GetString("session_id"),
		"wallet":     wallet.Response(),
		"seed":       pair.View(),
	})
}

// GetSeeds returns the active seed pair, creating it on first use. The
// server seed is shown only as its commitment.
func (h *UserHandler) GetSeeds(c *gin.Context) {
	userID := c.GetInt64("user_id")

	pair, err := h.seeds.GetOrCreateActiveSeedPair(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seed":    pair.View(),
	})
}

func (h *UserHandler) GetSeedPair(c *gin.Context) {
	userID := c.GetInt64("user_id")

	pair, err := h.seeds.GetSeedPair(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if pair.UserID != userID {
		respondError(c, models.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seed":    pair.View(),
	})
}

// RotateSeed retires the active pair, revealing its server seed, and starts
// a new one with the optional client seed from the body.
func (h *UserHandler) RotateSeed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req models.RotateSeedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err, kindInvalidRequest)
			return
		}
	}

	retired, active, err := h.seeds.RotateSeedPair(c.Request.Context(), userID, req.ClientSeed)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"seeds": models.RotateSeedResponse{
			Retired: retired.View(),
			Active:  active.View(),
		},
	})
}
