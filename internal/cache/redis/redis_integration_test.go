//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func setupRedis(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := New(ctx, ClientConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisAdapters(t *testing.T) {
	c := setupRedis(t)
	ctx := context.Background()

	t.Run("snapshot cache", func(t *testing.T) {
		cache := NewSnapshotCache(c, time.Minute)
		_, err := cache.Get(ctx, "0x1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		require.NoError(t, cache.Set(ctx, domain.PoolSnapshot{ID: "0x1", Name: "one", BullReserve: 5}))
		got, err := cache.Get(ctx, "0x01")
		require.NoError(t, err)
		assert.Equal(t, "one", got.Name)
		assert.Equal(t, uint64(5), got.BullReserve)

		require.NoError(t, cache.SetIndex(ctx, []string{"0x1", "0x2"}))
		ids, err := cache.GetIndex(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"0x1", "0x2"}, ids)

		require.NoError(t, cache.Invalidate(ctx, "0x1"))
		_, err = cache.Get(ctx, "0x1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lock", func(t *testing.T) {
		locks := NewLockManager(c)
		unlock, err := locks.Acquire(ctx, "refresh:0x1", time.Minute)
		require.NoError(t, err)

		_, err = locks.Acquire(ctx, "refresh:0x1", time.Minute)
		assert.ErrorIs(t, err, domain.ErrLockHeld)

		unlock()
		unlock()
		again, err := locks.Acquire(ctx, "refresh:0x1", time.Minute)
		require.NoError(t, err)
		again()
	})

	t.Run("rate limiter", func(t *testing.T) {
		rl := NewRateLimiter(c)
		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, "client", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := rl.Allow(ctx, "client", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("signal bus", func(t *testing.T) {
		bus := NewSignalBus(c)
		sctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, err := bus.Subscribe(sctx, domain.ChannelPoolUpdated)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, domain.ChannelPoolUpdated, []byte(`{"id":"0x1"}`)))

		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"id":"0x1"}`, string(msg))
		case <-time.After(5 * time.Second):
			t.Fatal("no message received")
		}
	})
}
