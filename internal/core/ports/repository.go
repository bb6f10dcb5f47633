package ports

import (
	"context"
	"time"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
)

// SessionStore owns the durable session record. Commit is all-or-nothing from
// the reader's point of view: a reader checking token presence never observes
// a role without a token.
type SessionStore interface {
	Commit(ctx context.Context, session domain.Session) error

	// Hydrate returns domain.ErrNoSession when any required field is missing
	// or unparseable (fail closed, never partially authenticated).
	Hydrate(ctx context.Context, token string) (*domain.Session, error)

	// Invalidate clears every session field. It reports whether a live
	// session was actually removed, so a burst of 401s on the same token
	// yields exactly one redirect.
	Invalidate(ctx context.Context, token string) (bool, error)
}

// LoginFlowRepository holds pending login flows between requests. Flows
// expire on their own; an expired flow simply reports not found.
type LoginFlowRepository interface {
	Save(ctx context.Context, flow *domain.LoginFlow) error
	Find(ctx context.Context, id string) (*domain.LoginFlow, error)
	Delete(ctx context.Context, id string) error
}

// LoginAttempt is an audit record of one credential submission.
type LoginAttempt struct {
	ID         string
	Identifier string
	Succeeded  bool
	Reason     string
	OccurredAt time.Time
}

// AuditRepository records authentication activity. Session events are written
// together with their outbox row in a single transaction; the relay worker
// publishes them to the broker afterwards.
type AuditRepository interface {
	RecordLoginAttempt(ctx context.Context, attempt LoginAttempt) error
	RecordSessionEvent(ctx context.Context, evt SessionEvent) error
}
