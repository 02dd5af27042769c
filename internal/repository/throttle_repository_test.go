package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleAllowsWithoutClient(t *testing.T) {
	repo := NewThrottleRepository(nil)

	for i := 0; i < 3; i++ {
		ok, err := repo.Allow(context.Background(), "reset:a@b.com", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestThrottleSurfacesRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	repo := NewThrottleRepository(client)

	ok, err := repo.Allow(context.Background(), "reset:a@b.com", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
