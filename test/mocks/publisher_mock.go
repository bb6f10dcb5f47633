package mocks

import (
	"context"
	"sync"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

// MockSessionEventPublisher implements ports.SessionEventPublisher for testing.
// This mock allows us to test the outbox relay without a real RabbitMQ connection.
type MockSessionEventPublisher struct {
	mu sync.RWMutex

	// Track published events for verification
	PublishedEvents []ports.SessionEvent

	// Error injection for testing error scenarios
	PublishError error

	// Track number of calls
	PublishCallCount int
}

// Ensure MockSessionEventPublisher implements ports.SessionEventPublisher at compile time.
var _ ports.SessionEventPublisher = (*MockSessionEventPublisher)(nil)

func NewMockSessionEventPublisher() *MockSessionEventPublisher {
	return &MockSessionEventPublisher{
		PublishedEvents: make([]ports.SessionEvent, 0),
	}
}

// PublishSessionEvent captures published events for verification.
func (m *MockSessionEventPublisher) PublishSessionEvent(ctx context.Context, evt ports.SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++

	if m.PublishError != nil {
		return m.PublishError
	}

	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of all events that were published.
func (m *MockSessionEventPublisher) GetPublishedEvents() []ports.SessionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.SessionEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

// Reset clears all tracking data.
func (m *MockSessionEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishedEvents = make([]ports.SessionEvent, 0)
	m.PublishError = nil
	m.PublishCallCount = 0
}
