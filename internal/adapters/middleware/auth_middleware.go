package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

// LoginPath is where expired or unauthenticated clients are redirected.
const LoginPath = "/login"

type AuthMiddleware struct {
	sessions ports.SessionService
}

func NewAuthMiddleware(sessions ports.SessionService) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

type contextKey string

const (
	SessionKey contextKey = "session"
	TokenKey   contextKey = "token"
)

// SessionFrom returns the hydrated session RequireSession stored on the
// request context.
func SessionFrom(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(SessionKey).(*domain.Session)
	return session
}

// TokenFrom returns the bearer token RequireSession stored on the context.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// RequireSession hydrates the session for the request's bearer token and
// fails closed: a missing, expired or unparseable session is rejected before
// the handler runs.
func (m *AuthMiddleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, "missing or invalid authorization header", false)
			return
		}

		session, err := m.sessions.Hydrate(r.Context(), token)
		if errors.Is(err, domain.ErrNoSession) {
			writeUnauthorized(w, "no active session", false)
			return
		}
		if err != nil {
			log.Printf("auth middleware: hydrate failed: %v", err)
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, session)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole additionally gates the handler on the session's resolved role.
func (m *AuthMiddleware) RequireRole(roles []domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFrom(r.Context())
		for _, role := range roles {
			if session.Role == role {
				next(w, r)
				return
			}
		}
		log.Printf("auth middleware: role %s not in %v", session.Role, roles)
		http.Error(w, "forbidden", http.StatusForbidden)
	})
}

// HandleUpstreamError applies the global 401 policy. When the backend
// reported an expired session, the whole session is invalidated and the
// response carries the login redirect; the redirect is issued exactly once
// even if several in-flight requests observe 401 for the same token.
// It reports whether the error was consumed.
func (m *AuthMiddleware) HandleUpstreamError(w http.ResponseWriter, r *http.Request, token string, err error) bool {
	var expired *domain.SessionExpiredError
	if !errors.As(err, &expired) {
		return false
	}

	redirect, expireErr := m.sessions.Expire(r.Context(), token)
	if expireErr != nil {
		log.Printf("auth middleware: failed to expire session: %v", expireErr)
	}
	writeUnauthorized(w, expired.Error(), redirect)
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeUnauthorized(w http.ResponseWriter, message string, redirect bool) {
	if redirect {
		w.Header().Set("Location", LoginPath)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     message,
		"retryable": false,
	})
}
