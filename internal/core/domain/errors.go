package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and flow lookups.
var (
	ErrNoSession    = errors.New("no session")
	ErrFlowNotFound = errors.New("login flow not found or expired")

	// ErrFlowBusy rejects events while a previous confirmation is still
	// committing, so a duplicate submission can never race an in-flight commit.
	ErrFlowBusy = errors.New("login flow is processing a previous request")

	// ErrFlowConflict rejects events that arrive in the wrong flow state.
	ErrFlowConflict = errors.New("event not valid in current flow state")
)

// retryable is implemented by errors the caller may recover from by simply
// trying again (resubmitting the form, waiting out a backend hiccup).
type retryable interface {
	Retryable() bool
}

// Retryable classifies an error for the client: true means re-submission can
// succeed, false means administrator intervention or a fresh login is needed.
func Retryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// AuthenticationError carries the backend's rejection of a credential pair.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

func (e *AuthenticationError) Retryable() bool { return true }

// NetworkError wraps a transport-level failure reaching the backend.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error   { return e.Err }
func (e *NetworkError) Retryable() bool { return true }

// ServerError reports a 5xx from the backend.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return e.Message
}

func (e *ServerError) Retryable() bool { return true }

// SessionExpiredError marks a 401 observed on an established session. The
// session is gone; only a fresh login helps.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string   { return "session expired, please log in again" }
func (e *SessionExpiredError) Retryable() bool { return false }

// NoRolesError: the identity authenticated but holds no role grants.
type NoRolesError struct{}

func (e *NoRolesError) Error() string {
	return "no roles assigned to this account, contact an administrator"
}

func (e *NoRolesError) Retryable() bool { return false }

// NoAcademicYearsError: the backend offers no academic years for a role that
// requires year scoping.
type NoAcademicYearsError struct {
	Role Role
}

func (e *NoAcademicYearsError) Error() string {
	return fmt.Sprintf("no academic years available for role %s, contact an administrator", e.Role)
}

func (e *NoAcademicYearsError) Retryable() bool { return false }

// UnknownRoleError: a role outside the known set reached routing or selection.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Role)
}

func (e *UnknownRoleError) Retryable() bool { return false }
