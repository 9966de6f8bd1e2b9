package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStateStore(client), mr
}

func TestStateStore_RoundTrip(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	ok, err := store.Consume(ctx, 1, state)
	require.NoError(t, err)
	assert.True(t, ok)

	// Single use: the same value must not validate twice.
	ok, err = store.Consume(ctx, 1, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_Mismatch(t *testing.T) {
	store, mr := setupStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	ok, err := store.Consume(ctx, 1, "not-"+state)
	require.NoError(t, err)
	assert.False(t, ok)

	// The slot is cleared even on mismatch.
	assert.False(t, mr.Exists("oauth_state:1"))
	ok, err = store.Consume(ctx, 1, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_MissingSlotRejects(t *testing.T) {
	store, _ := setupStateStore(t)

	ok, err := store.Consume(context.Background(), 7, "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_EmptyReceivedRejects(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	_, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	ok, err := store.Consume(ctx, 1, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_ReissueOverwrites(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	first, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	second, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// A second connect invalidates the first attempt.
	ok, err := store.Consume(ctx, 1, first)
	require.NoError(t, err)
	assert.False(t, ok)

	// The first consume already cleared the slot, so even the second
	// attempt's state is gone now.
	ok, err = store.Consume(ctx, 1, second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_SlotsAreScopedPerOwner(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	stateA, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	stateB, err := store.Issue(ctx, 2)
	require.NoError(t, err)

	ok, err := store.Consume(ctx, 2, stateA)
	require.NoError(t, err)
	assert.False(t, ok, "owner 2 must not validate owner 1's state")

	// Owner 1's slot is still pending.
	ok, err = store.Consume(ctx, 1, stateA)
	require.NoError(t, err)
	assert.True(t, ok)

	// Owner 2's failed attempt cleared its own slot only.
	ok, err = store.Consume(ctx, 2, stateB)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_Expiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewStateStoreWithTTL(client, time.Minute)
	ctx := context.Background()

	state, err := store.Issue(ctx, 1)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := store.Consume(ctx, 1, state)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateStore_Clear(t *testing.T) {
	store, _ := setupStateStore(t)
	ctx := context.Background()

	state, err := store.Issue(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx, 1))

	ok, err := store.Consume(ctx, 1, state)
	require.NoError(t, err)
	assert.False(t, ok)
}
