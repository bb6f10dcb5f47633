package mocks

import (
	"context"
	"sync"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

// MockSessionStore implements ports.SessionStore in memory.
// The real adapter is Redis-backed; services only see the interface.
type MockSessionStore struct {
	mu sync.RWMutex

	sessions map[string]domain.Session

	// Error injection for testing error scenarios
	CommitError     error
	HydrateError    error
	InvalidateError error

	// Call tracking for verification
	CommitCalls     []domain.Session
	InvalidateCalls []string
}

var _ ports.SessionStore = (*MockSessionStore)(nil)

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *MockSessionStore) Commit(ctx context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CommitCalls = append(m.CommitCalls, session)

	if m.CommitError != nil {
		return m.CommitError
	}
	m.sessions[session.Token] = session
	return nil
}

func (m *MockSessionStore) Hydrate(ctx context.Context, token string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.HydrateError != nil {
		return nil, m.HydrateError
	}
	session, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrNoSession
	}
	return &session, nil
}

func (m *MockSessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InvalidateCalls = append(m.InvalidateCalls, token)

	if m.InvalidateError != nil {
		return false, m.InvalidateError
	}
	_, ok := m.sessions[token]
	delete(m.sessions, token)
	return ok, nil
}

// Sessions returns a snapshot of the committed sessions.
func (m *MockSessionStore) Sessions() map[string]domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]domain.Session, len(m.sessions))
	for k, v := range m.sessions {
		out[k] = v
	}
	return out
}

// MockFlowRepository implements ports.LoginFlowRepository in memory.
type MockFlowRepository struct {
	mu sync.RWMutex

	flows map[string]domain.LoginFlow

	// Error injection for testing error scenarios
	SaveError   error
	FindError   error
	DeleteError error
}

var _ ports.LoginFlowRepository = (*MockFlowRepository)(nil)

func NewMockFlowRepository() *MockFlowRepository {
	return &MockFlowRepository{flows: make(map[string]domain.LoginFlow)}
}

func (m *MockFlowRepository) Save(ctx context.Context, flow *domain.LoginFlow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveError != nil {
		return m.SaveError
	}
	m.flows[flow.ID] = *flow
	return nil
}

func (m *MockFlowRepository) Find(ctx context.Context, id string) (*domain.LoginFlow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FindError != nil {
		return nil, m.FindError
	}
	flow, ok := m.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return &flow, nil
}

func (m *MockFlowRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.flows, id)
	return nil
}

// Count returns the number of pending flows.
func (m *MockFlowRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flows)
}

// MockAuditRepository implements ports.AuditRepository in memory.
type MockAuditRepository struct {
	mu sync.RWMutex

	LoginAttempts []ports.LoginAttempt
	SessionEvents []ports.SessionEvent

	AttemptError error
	EventError   error
}

var _ ports.AuditRepository = (*MockAuditRepository)(nil)

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) RecordLoginAttempt(ctx context.Context, attempt ports.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AttemptError != nil {
		return m.AttemptError
	}
	m.LoginAttempts = append(m.LoginAttempts, attempt)
	return nil
}

func (m *MockAuditRepository) RecordSessionEvent(ctx context.Context, evt ports.SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EventError != nil {
		return m.EventError
	}
	m.SessionEvents = append(m.SessionEvents, evt)
	return nil
}
