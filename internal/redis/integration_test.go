package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	testRedisURL string
	redContainer testcontainers.Container
)

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	redContainer, err = rediscontainer.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := redContainer.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	code := m.Run()

	if err := redContainer.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
	}
	os.Exit(code)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, testRedisURL)
	require.NoError(t, err)

	require.NoError(t, client.FlushAll(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client)
}

func TestStore_GetSetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v"))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Counters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.IncrBy(ctx, "load", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.IncrBy(ctx, "load", -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	f, err := store.IncrByFloat(ctx, "sum", 0.75)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, f, 1e-9)
}

func TestStore_Hashes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.HSet(ctx, "agent:a", map[string]string{"name": "Rosa", "status": "disponible"}))

	v, ok, err := store.HGet(ctx, "agent:a", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Rosa", v)

	_, ok, err = store.HGet(ctx, "agent:a", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := store.HGetAll(ctx, "agent:a")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := store.HIncrBy(ctx, "agent:metrics:a", "conversations_completed", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.HDel(ctx, "agent:a", "status"))
	all, err = store.HGetAll(ctx, "agent:a")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_SetsAndLists(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SAdd(ctx, "agents:online", "a", "b"))
	members, err := store.SMembers(ctx, "agents:online")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, store.SRem(ctx, "agents:online", "a"))
	members, err = store.SMembers(ctx, "agents:online")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, members)

	require.NoError(t, store.LPush(ctx, "hist", "one"))
	require.NoError(t, store.LPush(ctx, "hist", "two", "three"))
	require.NoError(t, store.LTrim(ctx, "hist", 0, 1))

	items, err := store.LRange(ctx, "hist", 0, -1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "three", items[0])
}

func TestStore_Expire(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ephemeral", "v"))
	require.NoError(t, store.Expire(ctx, "ephemeral", 100*time.Millisecond))

	time.Sleep(300 * time.Millisecond)

	_, ok, err := store.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PubSub(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := store.Subscribe(ctx, "events")
	defer sub.Close()

	// Redis pub/sub drops messages published before the subscription is
	// fully established; poll until delivery succeeds.
	received := make(chan []byte, 1)
	go func() {
		if msg, ok := <-sub.Messages(); ok {
			received <- msg
		}
	}()

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case msg := <-received:
			assert.Equal(t, `{"type":"login"}`, string(msg))
			return
		case <-ticker.C:
			require.NoError(t, store.Publish(ctx, "events", []byte(`{"type":"login"}`)))
		case <-deadline:
			t.Fatal("no message received over pub/sub")
		}
	}
}

func TestClient_InvalidURL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	_, err := NewClient(context.Background(), "not-a-url")
	require.Error(t, err)
}
