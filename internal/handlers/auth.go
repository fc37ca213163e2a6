package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fairplay-backend/internal/services"
)

const devTokenTTL = 24 * time.Hour

type devTokenRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// AuthHandler issues session tokens for local development. Production
// deployments get their tokens from the upstream identity provider.
type AuthHandler struct {
	jwtService *services.JWTService
	seeds      *services.SeedRegistry
}

func NewAuthHandler(jwtService *services.JWTService, seeds *services.SeedRegistry) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		seeds:      seeds,
	}
}

func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, kindInvalidRequest)
		return
	}

	sessionID := uuid.NewString()
	token, err := h.jwtService.GenerateToken(req.UserID, sessionID, devTokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := h.seeds.GetOrCreateActiveSeedPair(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"session_id": sessionID,
		"expires_in": int(devTokenTTL.Seconds()),
		"seed":       pair.View(),
	})
}
