package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

func webhookRouter() *gin.Engine {
	router := gin.New()
	router.POST("/api/telegram/webhook", TelegramWebhook)
	return router
}

func webhookRequest(secret, payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/telegram/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	return req
}

func TestTelegramWebhook(t *testing.T) {
	db, tg, _ := setupControllerTest(t)
	config.SetConfig(&config.Config{JWTSecret: "test-secret", TelegramWebhookSecret: "hook-secret"})

	testutil.CreateAviso(t, db, func(a *models.Aviso) { a.CustomerName = "Ana García" })
	router := webhookRouter()

	commandPayload := `{"update_id":1,"message":{"text":"/buscar Ana","chat":{"id":-100555}}}`

	t.Run("wrong secret is rejected", func(t *testing.T) {
		tg.Clear()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("wrong", commandPayload))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, tg.Sent())
	})

	t.Run("missing secret is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("", commandPayload))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("valid secret dispatches the command", func(t *testing.T) {
		tg.Clear()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("hook-secret", commandPayload))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeResponse(t, w)["ok"])
		require.NotEmpty(t, tg.Sent())
		assert.Contains(t, tg.LastMessage().Text, "Ana García")
	})

	t.Run("malformed payload is still acknowledged", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("hook-secret", `{not json`))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-command update is acknowledged silently", func(t *testing.T) {
		tg.Clear()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("hook-secret",
			`{"update_id":2,"message":{"text":"hola","chat":{"id":-100555}}}`))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, tg.Sent())
	})

	t.Run("no configured secret means no header check", func(t *testing.T) {
		config.SetConfig(&config.Config{JWTSecret: "test-secret"})
		defer config.SetConfig(&config.Config{JWTSecret: "test-secret", TelegramWebhookSecret: "hook-secret"})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, webhookRequest("", commandPayload))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
