// Package mocks provides mock implementations of port interfaces for testing.
// In hexagonal architecture, ports define the contracts between the core domain
// and external adapters. Mocks implement these interfaces to enable isolated testing.
package mocks

import (
	"context"
	"sync"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

// MockSchoolBackend implements ports.SchoolBackend for testing.
// This mock allows us to test the login flow without the remote REST backend.
type MockSchoolBackend struct {
	mu sync.RWMutex

	// Canned responses
	LoginResult *ports.LoginResult
	YearsByRole map[domain.Role]domain.AcademicYearSet
	MeResult    *domain.Identity

	// Error injection for testing error scenarios
	LoginError error
	YearsError error
	MeError    error

	// Call tracking for verification
	LoginCalls []ports.Credentials
	YearsCalls []domain.Role
	MeCalls    []string
}

// Ensure MockSchoolBackend implements ports.SchoolBackend at compile time.
var _ ports.SchoolBackend = (*MockSchoolBackend)(nil)

func NewMockSchoolBackend() *MockSchoolBackend {
	return &MockSchoolBackend{
		YearsByRole: make(map[domain.Role]domain.AcademicYearSet),
	}
}

func (m *MockSchoolBackend) Login(ctx context.Context, creds ports.Credentials) (*ports.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoginCalls = append(m.LoginCalls, creds)

	if m.LoginError != nil {
		return nil, m.LoginError
	}
	return m.LoginResult, nil
}

func (m *MockSchoolBackend) AcademicYearsForRole(ctx context.Context, token string, role domain.Role) (domain.AcademicYearSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.YearsCalls = append(m.YearsCalls, role)

	if m.YearsError != nil {
		return domain.AcademicYearSet{}, m.YearsError
	}
	return m.YearsByRole[role], nil
}

func (m *MockSchoolBackend) Me(ctx context.Context, token string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MeCalls = append(m.MeCalls, token)

	if m.MeError != nil {
		return nil, m.MeError
	}
	return m.MeResult, nil
}

// YearCallsFor returns how many times years were fetched for the given role.
func (m *MockSchoolBackend) YearCallsFor(role domain.Role) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.YearsCalls {
		if r == role {
			count++
		}
	}
	return count
}
