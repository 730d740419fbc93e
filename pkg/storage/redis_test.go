// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "handoff:")
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store, mr
}

func TestRedisStoreSetGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, "user:bob", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("handoff:user:bob"))
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreSetNX(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	ok, err := store.SetNX(ctx, "k", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestRedisStoreDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestRedisStoreListPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	require.NoError(t, store.Set(ctx, "inbox:bob:1", []byte("a"), time.Minute))
	require.NoError(t, store.Set(ctx, "inbox:bob:2", []byte("b"), time.Minute))
	require.NoError(t, store.Set(ctx, "inbox:alice:1", []byte("c"), time.Minute))

	keys, err := store.ListPrefix(ctx, "inbox:bob:", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"inbox:bob:1", "inbox:bob:2"}, keys)

	keys, err = store.ListPrefix(ctx, "inbox:bob:", 1)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
