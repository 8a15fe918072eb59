package repository

import (
	"context"
	"testing"
	"time"

	"agenda/internal/config"
	"agenda/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	s := miniredis.RunT(t)

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	repo := NewRedisSessionRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetSession", func(t *testing.T) {
		session := &models.AuthSession{
			Key:         "tg:123",
			UserID:      "u-1",
			Email:       "ana@example.com",
			Name:        "Ana",
			AccessToken: "token",
		}
		require.NoError(t, repo.SetSession(ctx, session))

		got, err := repo.GetSession(ctx, "tg:123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.UserID)
		assert.Equal(t, "token", got.AccessToken)
		assert.Equal(t, time.Hour, s.TTL("auth_session:tg:123"))
	})

	t.Run("TTLFollowsExpiry", func(t *testing.T) {
		session := &models.AuthSession{Key: "tg:exp", ExpiresAt: time.Now().Add(10 * time.Minute)}
		require.NoError(t, repo.SetSession(ctx, session))

		ttl := s.TTL("auth_session:tg:exp")
		assert.True(t, ttl > 9*time.Minute && ttl <= 10*time.Minute, "ttl %s", ttl)
	})

	t.Run("GetNonExistentSession", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "tg:999")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearSession", func(t *testing.T) {
		require.NoError(t, repo.SetSession(ctx, &models.AuthSession{Key: "tg:456"}))
		require.NoError(t, repo.ClearSession(ctx, "tg:456"))

		got, _ := repo.GetSession(ctx, "tg:456")
		assert.Nil(t, got)
	})

	t.Run("CorruptSession", func(t *testing.T) {
		require.NoError(t, s.Set("auth_session:tg:bad", "{not json"))
		_, err := repo.GetSession(ctx, "tg:bad")
		assert.Error(t, err)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "chat:789"
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSessionRepository(nil, time.Hour)
		_, err := repo.GetSession(ctx, "tg:123")
		assert.ErrorContains(t, err, "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
	})
}
