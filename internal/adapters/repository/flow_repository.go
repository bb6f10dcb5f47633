package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/config"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

const flowKeyPrefix = "login_flow:"

// RedisFlowRepository keeps pending login flows (role or year choice still
// outstanding) under a short TTL. An expired flow is indistinguishable from a
// cancelled one: nothing was committed either way.
type RedisFlowRepository struct {
	client *redis.Client
	ttl    time.Duration
	cb     *gobreaker.CircuitBreaker
}

var _ ports.LoginFlowRepository = (*RedisFlowRepository)(nil)

func NewRedisFlowRepository(client *redis.Client, ttl time.Duration) *RedisFlowRepository {
	return &RedisFlowRepository{
		client: client,
		ttl:    ttl,
		cb:     config.NewCircuitBreaker("Redis-Session"),
	}
}

func flowKey(id string) string {
	return flowKeyPrefix + id
}

func (r *RedisFlowRepository) Save(ctx context.Context, flow *domain.LoginFlow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode login flow: %w", err)
	}
	if _, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, flowKey(flow.ID), data, r.ttl).Err()
	}); err != nil {
		return fmt.Errorf("save login flow: %w", err)
	}
	return nil
}

func (r *RedisFlowRepository) Find(ctx context.Context, id string) (*domain.LoginFlow, error) {
	// A missing flow is a domain outcome, not a Redis failure; it must not
	// count towards tripping the breaker.
	result, err := r.cb.Execute(func() (interface{}, error) {
		data, err := r.client.Get(ctx, flowKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return data, err
	})
	if err != nil {
		return nil, fmt.Errorf("read login flow: %w", err)
	}
	data := result.([]byte)
	if data == nil {
		return nil, domain.ErrFlowNotFound
	}

	var flow domain.LoginFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		// Corrupt flow state aborts the flow; the user starts over.
		_ = r.client.Del(ctx, flowKey(id)).Err()
		return nil, domain.ErrFlowNotFound
	}
	return &flow, nil
}

func (r *RedisFlowRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, flowKey(id)).Err()
	}); err != nil {
		return fmt.Errorf("delete login flow: %w", err)
	}
	return nil
}
