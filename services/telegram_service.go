package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cadiz-tecnico/avisos-api/config"
)

// DefaultTelegramAPIBase is the Bot API endpoint
const DefaultTelegramAPIBase = "https://api.telegram.org"

// sendTimeout bounds every outbound Telegram call. A failed send is
// terminal for that attempt; there are no retries.
const sendTimeout = 5 * time.Second

// DiagnoseResult reports the outcome of a Telegram configuration probe
type DiagnoseResult struct {
	OK     bool   `json:"ok"`
	Bot    string `json:"bot,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TelegramInterface is the outbound message transport capability.
// Delivery failures are logged and reported as false, never as errors,
// so lifecycle actions can treat notification as fire-and-forget.
type TelegramInterface interface {
	// SendMessage delivers HTML-formatted text to the operations chat
	SendMessage(text string) bool

	// SendMessageTo delivers HTML-formatted text to a specific chat
	SendMessageTo(chatID, text string) bool

	// Diagnose validates the configured credentials against the API
	Diagnose() DiagnoseResult

	// OperationsChatID returns the configured operations chat id
	OperationsChatID() string
}

// TelegramService talks to the Telegram Bot API over HTTP
type TelegramService struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

var telegramServiceInstance TelegramInterface

// InitTelegramService initializes the Telegram transport from configuration
func InitTelegramService(cfg *config.Config) TelegramInterface {
	telegramServiceInstance = NewTelegramService(cfg.TelegramBotToken, cfg.TelegramChatID, DefaultTelegramAPIBase)
	return telegramServiceInstance
}

// NewTelegramService builds a transport against a specific API base URL
func NewTelegramService(token, chatID, baseURL string) *TelegramService {
	return &TelegramService{
		token:   strings.TrimSpace(token),
		chatID:  strings.TrimSpace(chatID),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: sendTimeout},
	}
}

// GetTelegramService returns the initialized transport instance
func GetTelegramService() TelegramInterface {
	return telegramServiceInstance
}

// SetTelegramService sets the transport instance (primarily for testing)
func SetTelegramService(service TelegramInterface) {
	telegramServiceInstance = service
}

// OperationsChatID returns the configured operations chat id
func (s *TelegramService) OperationsChatID() string {
	return s.chatID
}

// SendMessage delivers a message to the operations chat
func (s *TelegramService) SendMessage(text string) bool {
	if s.token == "" || s.chatID == "" {
		log.Printf("Telegram not configured, dropping message")
		return false
	}
	return s.sendTo(s.chatID, text)
}

// SendMessageTo delivers a message to a specific chat, e.g. an assigned technician
func (s *TelegramService) SendMessageTo(chatID, text string) bool {
	if s.token == "" || chatID == "" {
		return false
	}
	return s.sendTo(chatID, text)
}

func (s *TelegramService) sendTo(chatID, text string) bool {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	form := url.Values{
		"chat_id":    {chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}

	resp, err := s.client.PostForm(endpoint, form)
	if err != nil {
		log.Printf("Telegram send failed: %v", err)
		return false
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close Telegram response body: %v", closeErr)
		}
	}()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Telegram send: unreadable response (HTTP %d): %v", resp.StatusCode, err)
		return false
	}
	if !result.OK {
		log.Printf("Telegram send rejected (HTTP %d): %s", resp.StatusCode, result.Description)
	}
	return result.OK
}

// Diagnose checks the configured credentials and distinguishes
// not-configured, invalid-credential and transport failures.
func (s *TelegramService) Diagnose() DiagnoseResult {
	if s.token == "" {
		return DiagnoseResult{OK: false, Error: "TELEGRAM_BOT_TOKEN no configurado"}
	}
	if s.chatID == "" {
		return DiagnoseResult{OK: false, Error: "TELEGRAM_CHAT_ID no configurado"}
	}

	endpoint := fmt.Sprintf("%s/bot%s/getMe", s.baseURL, s.token)
	resp, err := s.client.Get(endpoint)
	if err != nil {
		return DiagnoseResult{OK: false, Error: fmt.Sprintf("error de conexión: %v", err)}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close Telegram response body: %v", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return DiagnoseResult{OK: false, Error: "Token inválido (401) — regenera el token en @BotFather"}
	}

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return DiagnoseResult{OK: false, Error: fmt.Sprintf("HTTP %d: respuesta ilegible", resp.StatusCode)}
	}
	if !payload.OK {
		return DiagnoseResult{OK: false, Error: fmt.Sprintf("HTTP %d: respuesta inesperada de Telegram", resp.StatusCode)}
	}

	return DiagnoseResult{OK: true, Bot: payload.Result.Username, ChatID: s.chatID}
}
