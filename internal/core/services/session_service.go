package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/metrics"
)

// SessionService owns established sessions after the login flow retires:
// re-hydration on application start, explicit logout, and the global policy
// for 401s observed on any authenticated request.
type SessionService struct {
	backend  ports.SchoolBackend
	sessions ports.SessionStore
	audit    ports.AuditRepository
}

var _ ports.SessionService = (*SessionService)(nil)

func NewSessionService(
	backend ports.SchoolBackend,
	sessions ports.SessionStore,
	audit ports.AuditRepository,
) *SessionService {
	return &SessionService{
		backend:  backend,
		sessions: sessions,
		audit:    audit,
	}
}

func (s *SessionService) Hydrate(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.Hydrate(ctx, token)
}

// Logout destroys the session wholesale. It is idempotent: logging out an
// already-gone session is not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	session, hydrateErr := s.sessions.Hydrate(ctx, token)

	removed, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	metrics.SessionInvalidations.WithLabelValues("logout").Inc()
	if hydrateErr == nil {
		s.recordInvalidation(ctx, session, "logout")
	}
	return nil
}

// Expire applies the cross-cutting 401 policy: clear every session field and
// tell the caller whether it is the one that should issue the login redirect.
// A burst of 401s on the same token invalidates once, so exactly one caller
// sees true.
func (s *SessionService) Expire(ctx context.Context, token string) (bool, error) {
	session, hydrateErr := s.sessions.Hydrate(ctx, token)

	removed, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	metrics.SessionInvalidations.WithLabelValues("expired").Inc()
	if hydrateErr == nil {
		s.recordInvalidation(ctx, session, "expired")
	}
	return true, nil
}

// Me refreshes the identity snapshot from the backend. A 401 surfaces as
// SessionExpiredError for the caller to route through Expire.
func (s *SessionService) Me(ctx context.Context, token string) (*domain.Identity, error) {
	return s.backend.Me(ctx, token)
}

func (s *SessionService) recordInvalidation(ctx context.Context, session *domain.Session, reason string) {
	if s.audit == nil {
		return
	}
	evt := ports.SessionEvent{
		EventID:    uuid.NewString(),
		Type:       ports.SessionInvalidated,
		UserID:     session.User.ID,
		Role:       string(session.Role),
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	if session.AcademicYear != nil {
		id := session.AcademicYear.ID
		evt.AcademicYearID = &id
	}
	if err := s.audit.RecordSessionEvent(ctx, evt); err != nil {
		log.Printf("session: failed to record invalidation event: %v", err)
	}
}
