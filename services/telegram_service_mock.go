package services

import "sync"

// SentMessage records one delivery attempt made through the mock transport
type SentMessage struct {
	ChatID string
	Text   string
}

// MockTelegramService is a mock implementation of TelegramInterface for testing
type MockTelegramService struct {
	chatID   string
	sent     []SentMessage
	FailNext bool // when true, every send reports a delivery failure
	mu       sync.RWMutex
}

// NewMockTelegramService creates a new mock transport with the given operations chat
func NewMockTelegramService(chatID string) *MockTelegramService {
	return &MockTelegramService{chatID: chatID}
}

// SetAsMockForTesting sets this mock as the global transport instance for testing
func (m *MockTelegramService) SetAsMockForTesting() {
	SetTelegramService(m)
}

// OperationsChatID returns the mock operations chat id
func (m *MockTelegramService) OperationsChatID() string {
	return m.chatID
}

// SendMessage records a delivery to the operations chat
func (m *MockTelegramService) SendMessage(text string) bool {
	return m.SendMessageTo(m.chatID, text)
}

// SendMessageTo records a delivery to a specific chat
func (m *MockTelegramService) SendMessageTo(chatID, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		return false
	}
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text})
	return true
}

// Diagnose reports a healthy mock configuration
func (m *MockTelegramService) Diagnose() DiagnoseResult {
	return DiagnoseResult{OK: true, Bot: "mock_bot", ChatID: m.chatID}
}

// Sent returns a copy of all recorded deliveries (for testing assertions)
func (m *MockTelegramService) Sent() []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastMessage returns the most recent delivery, or an empty record
func (m *MockTelegramService) LastMessage() SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sent) == 0 {
		return SentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

// Clear removes all recorded deliveries
func (m *MockTelegramService) Clear() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
