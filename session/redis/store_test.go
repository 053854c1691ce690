package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/core"
)

var _ core.SessionStore = (*Store)(nil)

func setupTestRedis(t *testing.T, optFns ...func(o *Options)) (*miniredis.Miniredis, *goredis.Client, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	return mr, client, New(client, optFns...)
}

func TestStore_RoundTrip(t *testing.T) {
	_, _, store := setupTestRedis(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "s1", 3)
	require.NoError(t, err)

	sess.AddUserInput("What's the weather in Paris?")
	sess.Append(core.TransitionTurn("triage", "weather", "weather question"))
	require.NoError(t, sess.Hops().Increment())
	sess.Activate("weather")
	sess.Append(core.AgentTurn("weather", "Sunny, 22°C"))
	sess.SetState("destination", "Paris")
	sess.Metadata["mode"] = "handoff"

	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, "weather", loaded.Active())
	assert.Equal(t, 1, loaded.Hops().Count())
	assert.Equal(t, 3, loaded.Hops().Max())
	assert.Equal(t, "handoff", loaded.Metadata["mode"])

	v, ok := loaded.GetState("destination")
	require.True(t, ok)
	assert.Equal(t, "Paris", v)

	if diff := cmp.Diff(sess.Transcript().Turns(), loaded.Transcript().Turns()); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SaveAppendsOnlyNewTurns(t *testing.T) {
	_, client, store := setupTestRedis(t)
	ctx := context.Background()

	sess, err := store.Create(ctx, "s2", 0)
	require.NoError(t, err)

	sess.AddUserInput("hi")
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Save(ctx, sess))

	n, err := client.LLen(ctx, store.turnsKey("s2")).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	sess.Append(core.AgentTurn("triage", "hello"))
	require.NoError(t, store.Save(ctx, sess))

	n, err = client.LLen(ctx, store.turnsKey("s2")).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// A shorter transcript under the same id replaces the stored list.
	other := core.NewSession("s2", 0)
	other.AddUserInput("fresh")
	require.NoError(t, store.Save(ctx, other))

	loaded, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Transcript().Len())
	assert.Equal(t, "fresh", loaded.Transcript().LastUserInput())
}

func TestStore_NotFoundAndDelete(t *testing.T) {
	_, _, store := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	_, err = store.Create(ctx, "s3", 0)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "s3"))

	_, err = store.Get(ctx, "s3")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStore_TTLAndPrefix(t *testing.T) {
	mr, _, store := setupTestRedis(t, func(o *Options) {
		o.KeyPrefix = "test:"
		o.TTL = time.Minute
	})
	ctx := context.Background()

	sess, err := store.Create(ctx, "s4", 0)
	require.NoError(t, err)

	sess.AddUserInput("hi")
	require.NoError(t, store.Save(ctx, sess))

	assert.True(t, mr.Exists("test:s4"))
	assert.Equal(t, time.Minute, mr.TTL("test:s4:turns"))

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "s4")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestNewFromAddr(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewFromAddr(ctx, mr.Addr())
	require.NoError(t, err)

	defer store.Close()

	sess, err := store.Create(ctx, "", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	addr := mr.Addr()
	mr.Close()

	_, err = NewFromAddr(ctx, addr)
	assert.Error(t, err)
}
