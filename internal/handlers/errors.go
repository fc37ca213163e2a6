package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"fairplay-backend/internal/models"
)

const kindInvalidRequest = "invalid_request"

var kindStatus = map[models.ErrorKind]int{
	models.KindInvalidWager:           http.StatusBadRequest,
	models.KindInvalidTarget:          http.StatusBadRequest,
	models.KindInsufficientFunds:      http.StatusPaymentRequired,
	models.KindNoActiveSeed:           http.StatusPreconditionFailed,
	models.KindConcurrentModification: http.StatusConflict,
	models.KindGameUnavailable:        http.StatusServiceUnavailable,
	models.KindInternalFault:          http.StatusInternalServerError,
}

func statusFor(kind models.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes the failure body for err. Internal faults hide their
// cause from the player.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":    false,
			"error_kind": "not_found",
			"message":    "not found",
		})
		return
	}

	kind := models.KindOf(err)
	message := err.Error()
	var be *models.BetError
	if errors.As(err, &be) {
		message = be.Message
	}
	if kind == models.KindInternalFault {
		_ = c.Error(err)
		message = "internal error"
	}

	c.JSON(statusFor(kind), gin.H{
		"success":    false,
		"error_kind": kind,
		"message":    message,
	})
}

// bindError reports a request that failed JSON binding or validation.
func bindError(c *gin.Context, err error, kind string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error_kind": kind,
			"message":    strings.Join(msgs, "; "),
			"fields":     fields,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"success":    false,
		"error_kind": kind,
		"message":    "Invalid request: " + err.Error(),
	})
}
