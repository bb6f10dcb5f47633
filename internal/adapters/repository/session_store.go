package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/config"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/metrics"
)

const sessionKeyPrefix = "session:"

// The four field names are the storage contract shared with the dashboards;
// values are JSON except token, which is the bare string.
const (
	fieldToken        = "token"
	fieldUserData     = "userData"
	fieldUserRole     = "userRole"
	fieldAcademicYear = "academicYear"
)

// RedisSessionStore persists established sessions in Redis. A session either
// has all of its fields or none of them: writes go through a MULTI/EXEC
// pipeline with the token queued last, and hydration fails closed on any
// missing or unparseable field.
type RedisSessionStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	cb         *gobreaker.CircuitBreaker
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(client *redis.Client, defaultTTL time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:     client,
		defaultTTL: defaultTTL,
		cb:         config.NewCircuitBreaker("Redis-Session"),
	}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (s *RedisSessionStore) Commit(ctx context.Context, session domain.Session) error {
	if !session.Valid() {
		return fmt.Errorf("refusing to commit incomplete session for role %q", session.Role)
	}

	userData, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	yearData, err := json.Marshal(session.AcademicYear)
	if err != nil {
		return fmt.Errorf("encode academic year: %w", err)
	}

	key := sessionKey(session.Token)
	ttl := sessionTTL(session.Token, s.defaultTTL)

	// Token is queued last so that even without MULTI/EXEC semantics a
	// token-presence check can never observe a role without a token.
	_, err = s.cb.Execute(func() (interface{}, error) {
		pipe := s.client.TxPipeline()
		pipe.HSet(ctx, key, fieldUserData, string(userData))
		pipe.HSet(ctx, key, fieldUserRole, string(session.Role))
		pipe.HSet(ctx, key, fieldAcademicYear, string(yearData))
		pipe.HSet(ctx, key, fieldToken, session.Token)
		pipe.Expire(ctx, key, ttl)
		return pipe.Exec(ctx)
	})
	if err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Hydrate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrNoSession
	}

	// HGetAll reports a missing key as an empty map, so a cache miss never
	// counts as a breaker failure.
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.HGetAll(ctx, sessionKey(token)).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	fields := result.(map[string]string)
	if len(fields) == 0 {
		return nil, domain.ErrNoSession
	}

	session, err := parseSession(fields)
	if err != nil {
		// A previously stored value no longer parses. Fail closed and clear
		// the residue rather than serving a partial session.
		return nil, s.discardCorrupt(ctx, token)
	}
	if session.Token != token {
		return nil, s.discardCorrupt(ctx, token)
	}
	return session, nil
}

func (s *RedisSessionStore) discardCorrupt(ctx context.Context, token string) error {
	if _, err := s.Invalidate(ctx, token); err != nil {
		return err
	}
	metrics.SessionInvalidations.WithLabelValues("corrupt").Inc()
	return domain.ErrNoSession
}

func (s *RedisSessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Del(ctx, sessionKey(token)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("invalidate session: %w", err)
	}
	return result.(int64) > 0, nil
}

func parseSession(fields map[string]string) (*domain.Session, error) {
	token, ok := fields[fieldToken]
	if !ok || token == "" {
		return nil, errors.New("session record has no token")
	}
	rawUser, ok := fields[fieldUserData]
	if !ok {
		return nil, errors.New("session record has no user data")
	}
	role, ok := fields[fieldUserRole]
	if !ok || role == "" {
		return nil, errors.New("session record has no role")
	}

	var user domain.Identity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}

	var year *domain.AcademicYear
	if raw, ok := fields[fieldAcademicYear]; ok && raw != "" && raw != "null" {
		year = &domain.AcademicYear{}
		if err := json.Unmarshal([]byte(raw), year); err != nil {
			return nil, fmt.Errorf("decode academic year: %w", err)
		}
	}

	session := &domain.Session{
		Token:        token,
		User:         user,
		Role:         domain.Role(role),
		AcademicYear: year,
	}
	if !session.Valid() {
		return nil, errors.New("session record is incomplete")
	}
	return session, nil
}

// sessionTTL derives the record's lifetime from the bearer token's exp claim
// when the token happens to be a JWT. The token is otherwise treated as
// opaque; signature verification belongs to the backend that issued it.
func sessionTTL(token string, fallback time.Duration) time.Duration {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return fallback
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return fallback
	}
	return ttl
}
