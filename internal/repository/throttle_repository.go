package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "cesizen:throttle:"

// ThrottleRepository rate-limits actions per key using Redis SET NX with a TTL.
type ThrottleRepository struct {
	client *redis.Client
}

// NewThrottleRepository constructs a throttle. A nil client disables throttling.
func NewThrottleRepository(client *redis.Client) *ThrottleRepository {
	return &ThrottleRepository{client: client}
}

// Allow reports whether the action identified by key may run now, and reserves
// the window when it may.
func (r *ThrottleRepository) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if r == nil || r.client == nil || window <= 0 {
		return true, nil
	}

	ok, err := r.client.SetNX(ctx, throttleKeyPrefix+key, time.Now().UTC().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}
