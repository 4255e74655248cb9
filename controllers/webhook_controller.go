package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/services"
)

// secretTokenHeader is the header Telegram attaches when the webhook was
// registered with a secret_token.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook handles POST /api/telegram/webhook. Always answers 200 to
// acknowledged updates so Telegram does not retry them.
func TelegramWebhook(c *gin.Context) {
	cfg := config.GetConfig()
	if cfg.TelegramWebhookSecret != "" {
		got := c.GetHeader(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.TelegramWebhookSecret)) != 1 {
			c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "Invalid webhook secret"))
			return
		}
	}

	var update services.TelegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		// Malformed payloads are acknowledged too; retrying will not fix them.
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	services.ProcessUpdate(config.GetDB(), &update)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
