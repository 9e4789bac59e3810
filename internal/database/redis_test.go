package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClients_SharesServer(t *testing.T) {
	mr := miniredis.RunT(t)

	clients, err := NewRedisClients("redis://" + mr.Addr())
	require.NoError(t, err)
	defer clients.Close()

	ctx := context.Background()
	require.NoError(t, clients.Cache.Set(ctx, "identity:shared", "x", 0).Err())
	got, err := clients.PubSub.Get(ctx, "identity:shared").Result()
	require.NoError(t, err)
	assert.Equal(t, "x", got)
	assert.Equal(t, 4, clients.PubSub.Options().PoolSize)
}

func TestNewRedisClients_Errors(t *testing.T) {
	_, err := NewRedisClients("not a url")
	assert.ErrorContains(t, err, "failed to parse Redis URL")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisClients("redis://" + addr)
	assert.ErrorContains(t, err, "Redis (cache)")
}
