package ports

import (
	"context"
	"time"
)

const (
	SessionEstablished = "session.established"
	SessionInvalidated = "session.invalidated"
)

// SessionEvent is published on session lifecycle changes so downstream
// services (attendance, notifications) can react.
type SessionEvent struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	UserID         int       `json:"user_id"`
	Role           string    `json:"role"`
	AcademicYearID *int      `json:"academic_year_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, evt SessionEvent) error
}
