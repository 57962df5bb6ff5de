package services

import (
	"context"
	"sync"
)

// MockMailer records emails instead of sending them
type MockMailer struct {
	sent []Email
	mu   sync.Mutex
	// Err, when set, is returned from every Send
	Err error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, email)
	return nil
}

// Sent returns a copy of the recorded emails
func (m *MockMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentTo returns the recorded emails for one recipient
func (m *MockMailer) SentTo(to string) []Email {
	var out []Email
	for _, e := range m.Sent() {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}
