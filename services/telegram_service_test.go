package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"chat_id":    r.PostFormValue("chat_id"),
			"text":       r.PostFormValue("text"),
			"parse_mode": r.PostFormValue("parse_mode"),
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	tg := NewTelegramService("123:abc", "-100555", server.URL)
	assert.True(t, tg.SendMessage("<b>hola</b>"))

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "-100555", gotForm["chat_id"])
	assert.Equal(t, "<b>hola</b>", gotForm["text"])
	assert.Equal(t, "HTML", gotForm["parse_mode"])
}

func TestSendMessageRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "Bad Request: chat not found"})
	}))
	defer server.Close()

	tg := NewTelegramService("123:abc", "-100555", server.URL)
	assert.False(t, tg.SendMessage("hola"))
}

func TestSendMessageUnconfigured(t *testing.T) {
	tg := NewTelegramService("", "", DefaultTelegramAPIBase)
	assert.False(t, tg.SendMessage("hola"))
	assert.False(t, tg.SendMessageTo("123", "hola"))
}

func TestSendMessageTo(t *testing.T) {
	var gotChat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotChat = r.PostFormValue("chat_id")
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	tg := NewTelegramService("123:abc", "-100555", server.URL)
	assert.True(t, tg.SendMessageTo("777888", "aviso para ti"))
	assert.Equal(t, "777888", gotChat)
}

func TestDiagnose(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		result := NewTelegramService("", "", DefaultTelegramAPIBase).Diagnose()
		assert.False(t, result.OK)
		assert.Contains(t, result.Error, "TELEGRAM_BOT_TOKEN")

		result = NewTelegramService("123:abc", "", DefaultTelegramAPIBase).Diagnose()
		assert.False(t, result.OK)
		assert.Contains(t, result.Error, "TELEGRAM_CHAT_ID")
	})

	t.Run("invalid token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": false})
		}))
		defer server.Close()

		result := NewTelegramService("bad-token", "-100555", server.URL).Diagnose()
		assert.False(t, result.OK)
		assert.Contains(t, result.Error, "401")
		assert.Contains(t, result.Error, "BotFather")
	})

	t.Run("healthy bot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/getMe"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"ok":     true,
				"result": map[string]interface{}{"username": "avisos_bot"},
			})
		}))
		defer server.Close()

		result := NewTelegramService("123:abc", "-100555", server.URL).Diagnose()
		assert.True(t, result.OK)
		assert.Equal(t, "avisos_bot", result.Bot)
		assert.Equal(t, "-100555", result.ChatID)
	})

	t.Run("unreachable server", func(t *testing.T) {
		result := NewTelegramService("123:abc", "-100555", "http://127.0.0.1:1").Diagnose()
		assert.False(t, result.OK)
		assert.Contains(t, result.Error, "error de conexión")
	})
}
