package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

// CooldownStoreRedis implements repository.CooldownStore with SET NX EX,
// so cooldowns hold across service instances and survive restarts.
type CooldownStoreRedis struct {
	client *redis.Client
}

// NewCooldownStoreRedis creates a new instance.
func NewCooldownStoreRedis(client *redis.Client) *CooldownStoreRedis {
	return &CooldownStoreRedis{client: client}
}

// Acquire sets the marker if absent; false means the cooldown is running.
func (s *CooldownStoreRedis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, fmt.Sprintf("cooldown:%s", key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cooldown: %w", err)
	}
	return ok, nil
}

var _ repository.CooldownStore = (*CooldownStoreRedis)(nil)
