package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

func newTestRegistry(t *testing.T) (*Registry, *state.MemoryStore, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store := state.NewMemoryStore(clock)
	return NewRegistry(store, clock), store, clock
}

func TestLogin(t *testing.T) {
	registry, store, clock := newTestRegistry(t)
	ctx := context.Background()

	agent, err := registry.Login(ctx, "agent-1", "Rosa Duarte", "PY-ASU", []string{"voice"})
	require.NoError(t, err)

	assert.Equal(t, "agent-1", agent.ID)
	assert.Equal(t, domain.StatusAvailable, agent.Status)
	assert.Equal(t, int64(0), agent.CurrentLoad)
	assert.Equal(t, clock.Now(), agent.LoginTime)

	online, err := store.SMembers(ctx, domain.OnlineAgentsKey)
	require.NoError(t, err)
	assert.Contains(t, online, "agent-1")

	regional, err := store.SMembers(ctx, domain.RegionAgentsKey("PY-ASU"))
	require.NoError(t, err)
	assert.Contains(t, regional, "agent-1")
}

func TestLogin_EmptyIDRejected(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	_, err := registry.Login(context.Background(), "", "Nameless", "PY-1", nil)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.TypeValidation, appErr.Type)
}

func TestLogin_DefaultSkills(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	ctx := context.Background()

	agent, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSkills, agent.Skills)

	got, err := registry.GetStatus(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSkills, got.Skills)
}

func TestLogin_RepeatResetsSession(t *testing.T) {
	registry, _, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)

	_, err = registry.SetStatus(ctx, "agent-1", domain.StatusBusy)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	agent, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, agent.Status)
	assert.Equal(t, clock.Now(), agent.LoginTime)
}

func TestLogin_RegionChangeDropsOldIndexEntry(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "Central", nil)
	require.NoError(t, err)

	_, err = registry.Login(ctx, "agent-1", "Rosa", "Itapúa", nil)
	require.NoError(t, err)

	old, err := store.SMembers(ctx, domain.RegionAgentsKey("Central"))
	require.NoError(t, err)
	assert.NotContains(t, old, "agent-1")

	current, err := store.SMembers(ctx, domain.RegionAgentsKey("Itapúa"))
	require.NoError(t, err)
	assert.Contains(t, current, "agent-1")

	// After logout no region index may still claim the agent.
	ok, err := registry.Logout(ctx, "agent-1")
	require.NoError(t, err)
	require.True(t, ok)

	current, err = store.SMembers(ctx, domain.RegionAgentsKey("Itapúa"))
	require.NoError(t, err)
	assert.NotContains(t, current, "agent-1")
}

func TestLogout(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-ASU", nil)
	require.NoError(t, err)

	ok, err := registry.Logout(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, ok)

	online, err := store.SMembers(ctx, domain.OnlineAgentsKey)
	require.NoError(t, err)
	assert.NotContains(t, online, "agent-1")

	regional, err := store.SMembers(ctx, domain.RegionAgentsKey("PY-ASU"))
	require.NoError(t, err)
	assert.NotContains(t, regional, "agent-1")

	agent, err := registry.GetStatus(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, agent.Status)
}

func TestLogout_UnknownAgentIsNoOp(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	ok, err := registry.Logout(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetStatus(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)

	ok, err := registry.SetStatus(ctx, "agent-1", domain.StatusBreak)
	require.NoError(t, err)
	assert.True(t, ok)

	agent, err := registry.GetStatus(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBreak, agent.Status)
}

func TestSetStatus_InvalidValueRejected(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	_, err := registry.SetStatus(context.Background(), "agent-1", "sleeping")
	require.Error(t, err)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.TypeValidation, appErr.Type)
}

func TestSetStatus_UnknownAgent(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	ok, err := registry.SetStatus(context.Background(), "ghost", domain.StatusBusy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetStatus_NotFound(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	_, err := registry.GetStatus(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestListOnline_SortedAndFiltered(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		_, err := registry.Login(ctx, id, "Agent "+id, "PY-1", nil)
		require.NoError(t, err)
	}

	_, err := registry.Logout(ctx, "b")
	require.NoError(t, err)

	agents, err := registry.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "a", agents[0].ID)
	assert.Equal(t, "c", agents[1].ID)
}

func TestHeartbeat(t *testing.T) {
	registry, _, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	ok, err := registry.Heartbeat(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, ok)

	agent, err := registry.GetStatus(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, agent.LastActivity.Equal(clock.Now()))

	ok, err = registry.Heartbeat(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReapStale(t *testing.T) {
	registry, _, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "stale", "Old", "PY-1", nil)
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	_, err = registry.Login(ctx, "fresh", "New", "PY-1", nil)
	require.NoError(t, err)

	reaped, err := registry.ReapStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)

	agents, err := registry.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "fresh", agents[0].ID)

	stale, err := registry.GetStatus(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, stale.Status)
}

func TestReapStale_HeartbeatKeepsAlive(t *testing.T) {
	registry, _, clock := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)
	_, err = registry.Heartbeat(ctx, "agent-1")
	require.NoError(t, err)

	clock.Advance(25 * time.Minute)
	reaped, err := registry.ReapStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, reaped)
}

func TestLoadDistribution(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)
	_, err = registry.Login(ctx, "agent-2", "Luis", "PY-1", nil)
	require.NoError(t, err)

	_, err = store.IncrBy(ctx, domain.AgentLoadKey("agent-2"), 3)
	require.NoError(t, err)

	dist, err := registry.LoadDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Rosa": 0, "Luis": 3}, dist)
}

func TestRegionStatsAll(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := registry.Login(ctx, "a", "Ana", "Central", nil)
	require.NoError(t, err)
	_, err = registry.Login(ctx, "b", "Beto", "Central", nil)
	require.NoError(t, err)
	_, err = registry.Login(ctx, "c", "Cira", "Itapúa", nil)
	require.NoError(t, err)

	_, err = registry.SetStatus(ctx, "b", domain.StatusBusy)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, domain.AgentLoadKey("b"), "2"))

	stats, err := registry.RegionStatsAll(ctx)
	require.NoError(t, err)

	require.Contains(t, stats, "Central")
	assert.Equal(t, 2, stats["Central"].TotalAgents)
	assert.Equal(t, 1, stats["Central"].Available)
	assert.Equal(t, int64(2), stats["Central"].TotalLoad)

	require.Contains(t, stats, "Itapúa")
	assert.Equal(t, 1, stats["Itapúa"].TotalAgents)
	assert.Equal(t, 1, stats["Itapúa"].Available)
}

func TestLoginPublishesEvent(t *testing.T) {
	registry, store, _ := newTestRegistry(t)
	ctx := context.Background()

	sub := store.Subscribe(ctx, domain.ChannelAgentEvents)
	defer sub.Close()

	_, err := registry.Login(ctx, "agent-1", "Rosa", "PY-1", nil)
	require.NoError(t, err)

	select {
	case msg := <-sub.Messages():
		assert.Contains(t, string(msg), `"type":"login"`)
		assert.Contains(t, string(msg), `"agent_id":"agent-1"`)
	case <-time.After(time.Second):
		t.Fatal("no login event published")
	}
}
