package notify

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockSender records sent messages.
type MockSender struct {
	mu       sync.Mutex
	Messages []tgbotapi.MessageConfig
	Err      error
}

func (m *MockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return tgbotapi.Message{}, m.Err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.Messages = append(m.Messages, msg)
	}
	return tgbotapi.Message{MessageID: len(m.Messages)}, nil
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}
