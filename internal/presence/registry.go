// Package presence is the single source of truth for agent existence,
// status and activity, replicated across all process instances through the
// shared store.
package presence

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
	"github.com/jaimehuang168/VoxParaguay2026/internal/metrics"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/logging"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

const timeLayout = time.RFC3339Nano

type Registry struct {
	store state.Store
	clock clockwork.Clock
}

func NewRegistry(store state.Store, clock clockwork.Clock) *Registry {
	return &Registry{store: store, clock: clock}
}

// Login registers the agent as online and available. It is an idempotent
// upsert: a repeated login resets the session (fresh login time, load zero).
func (r *Registry) Login(ctx context.Context, agentID, name, region string, skills []string) (*domain.Agent, error) {
	if agentID == "" {
		return nil, apperrors.ValidationError("agent id must not be empty")
	}
	if len(skills) == 0 {
		skills = domain.DefaultSkills
	}

	// A repeated login may move the agent; the old region index entry has
	// to go, or the stale pool would shadow the assignment fallback.
	previous, err := r.store.HGetAll(ctx, domain.AgentKey(agentID))
	if err != nil {
		return nil, err
	}
	if old := previous["region"]; old != "" && old != region {
		if err := r.store.SRem(ctx, domain.RegionAgentsKey(old), agentID); err != nil {
			return nil, err
		}
	}

	now := r.clock.Now()
	agent := &domain.Agent{
		ID:           agentID,
		Name:         name,
		Region:       region,
		Skills:       skills,
		Status:       domain.StatusAvailable,
		CurrentLoad:  0,
		LoginTime:    now,
		LastActivity: now,
	}

	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return nil, apperrors.InternalError("failed to encode skills", err)
	}

	fields := map[string]string{
		"id":                  agentID,
		"name":                name,
		"status":              string(domain.StatusAvailable),
		"region":              region,
		"skills":              string(skillsJSON),
		"current_connections": "0",
		"login_time":          now.Format(timeLayout),
		"last_activity":       now.Format(timeLayout),
	}
	if err := r.store.HSet(ctx, domain.AgentKey(agentID), fields); err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, domain.AgentStatusKey(agentID), string(domain.StatusAvailable)); err != nil {
		return nil, err
	}
	if err := r.store.Set(ctx, domain.AgentLoadKey(agentID), "0"); err != nil {
		return nil, err
	}
	if err := r.store.SAdd(ctx, domain.OnlineAgentsKey, agentID); err != nil {
		return nil, err
	}
	if region != "" {
		if err := r.store.SAdd(ctx, domain.RegionAgentsKey(region), agentID); err != nil {
			return nil, err
		}
	}

	r.publish(ctx, domain.AgentEvent{
		Type:      domain.EventLogin,
		AgentID:   agentID,
		AgentName: name,
		Timestamp: now,
	})

	logging.WithAgent(agentID).Info("Agent logged in", "region", region)
	return agent, nil
}

// Logout moves the agent to offline and removes it from the online and
// region indices. Logging out an unknown agent is a no-op returning false,
// not an error, so network retries are safe.
func (r *Registry) Logout(ctx context.Context, agentID string) (bool, error) {
	fields, err := r.store.HGetAll(ctx, domain.AgentKey(agentID))
	if err != nil {
		return false, err
	}
	if len(fields) == 0 {
		return false, nil
	}

	now := r.clock.Now()
	if err := r.store.Set(ctx, domain.AgentStatusKey(agentID), string(domain.StatusOffline)); err != nil {
		return false, err
	}
	update := map[string]string{
		"status":      string(domain.StatusOffline),
		"logout_time": now.Format(timeLayout),
	}
	if err := r.store.HSet(ctx, domain.AgentKey(agentID), update); err != nil {
		return false, err
	}
	if err := r.store.SRem(ctx, domain.OnlineAgentsKey, agentID); err != nil {
		return false, err
	}
	if region := fields["region"]; region != "" {
		if err := r.store.SRem(ctx, domain.RegionAgentsKey(region), agentID); err != nil {
			return false, err
		}
	}

	r.publish(ctx, domain.AgentEvent{
		Type:      domain.EventLogout,
		AgentID:   agentID,
		AgentName: fields["name"],
		Timestamp: now,
	})

	logging.WithAgent(agentID).Info("Agent logged out")
	return true, nil
}

// SetStatus updates the agent's availability. Returns false for unknown
// agents. Status transitions never touch the load counter; the assignment
// engine owns it.
func (r *Registry) SetStatus(ctx context.Context, agentID string, status domain.AgentStatus) (bool, error) {
	if !domain.ValidAgentStatus(status) {
		return false, apperrors.ValidationError("unknown agent status").WithField("status", string(status))
	}

	_, ok, err := r.store.HGet(ctx, domain.AgentKey(agentID), "id")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	now := r.clock.Now()
	if err := r.store.Set(ctx, domain.AgentStatusKey(agentID), string(status)); err != nil {
		return false, err
	}
	update := map[string]string{
		"status":        string(status),
		"last_activity": now.Format(timeLayout),
	}
	if err := r.store.HSet(ctx, domain.AgentKey(agentID), update); err != nil {
		return false, err
	}

	r.publish(ctx, domain.AgentEvent{
		Type:      domain.EventStatusChange,
		AgentID:   agentID,
		Status:    status,
		Timestamp: now,
	})

	return true, nil
}

// GetStatus returns the agent record including its current load, or
// domain.ErrAgentNotFound.
func (r *Registry) GetStatus(ctx context.Context, agentID string) (*domain.Agent, error) {
	fields, err := r.store.HGetAll(ctx, domain.AgentKey(agentID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrAgentNotFound
	}

	load, err := r.currentLoad(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return agentFromHash(fields, load), nil
}

// ListOnline returns all agents in the online index, ordered by id.
func (r *Registry) ListOnline(ctx context.Context) ([]domain.Agent, error) {
	ids, err := r.store.SMembers(ctx, domain.OnlineAgentsKey)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)

	agents := make([]domain.Agent, 0, len(ids))
	for _, id := range ids {
		agent, err := r.GetStatus(ctx, id)
		if err != nil {
			if err == domain.ErrAgentNotFound {
				continue
			}
			return nil, err
		}
		agents = append(agents, *agent)
	}
	return agents, nil
}

// Heartbeat refreshes the agent's last activity. Returns false for unknown
// agents.
func (r *Registry) Heartbeat(ctx context.Context, agentID string) (bool, error) {
	_, ok, err := r.store.HGet(ctx, domain.AgentKey(agentID), "id")
	if err != nil || !ok {
		return false, err
	}
	update := map[string]string{"last_activity": r.clock.Now().Format(timeLayout)}
	if err := r.store.HSet(ctx, domain.AgentKey(agentID), update); err != nil {
		return false, err
	}
	return true, nil
}

// ReapStale logs out every online agent whose last activity is older than
// the timeout. It recovers agents whose disconnect was never cleanly
// observed.
func (r *Registry) ReapStale(ctx context.Context, timeout time.Duration) (int, error) {
	ids, err := r.store.SMembers(ctx, domain.OnlineAgentsKey)
	if err != nil {
		return 0, err
	}

	cutoff := r.clock.Now().Add(-timeout)
	reaped := 0
	for _, id := range ids {
		raw, ok, err := r.store.HGet(ctx, domain.AgentKey(id), "last_activity")
		if err != nil {
			return reaped, err
		}
		if !ok {
			continue
		}
		last, err := time.Parse(timeLayout, raw)
		if err != nil {
			slog.Warn("Unparseable last_activity, skipping agent", "agent_id", id, "value", raw)
			continue
		}
		if last.Before(cutoff) {
			if _, err := r.Logout(ctx, id); err != nil {
				return reaped, err
			}
			metrics.AgentsReapedTotal.Inc()
			reaped++
		}
	}
	return reaped, nil
}

// LoadDistribution maps every online agent's name to its current load.
func (r *Registry) LoadDistribution(ctx context.Context) (map[string]int64, error) {
	ids, err := r.store.SMembers(ctx, domain.OnlineAgentsKey)
	if err != nil {
		return nil, err
	}

	dist := make(map[string]int64, len(ids))
	for _, id := range ids {
		load, err := r.currentLoad(ctx, id)
		if err != nil {
			return nil, err
		}
		name, ok, err := r.store.HGet(ctx, domain.AgentKey(id), "name")
		if err != nil {
			return nil, err
		}
		if !ok || name == "" {
			name = id
		}
		dist[name] = load
	}
	return dist, nil
}

// RegionStats aggregates the online agents per region: head count, how
// many are available, and the summed load.
type RegionStats struct {
	TotalAgents int   `json:"total_agents"`
	Available   int   `json:"available"`
	TotalLoad   int64 `json:"total_load"`
}

// RegionStatsAll groups every online agent by region. Agents logged in
// without a region are reported under "unassigned".
func (r *Registry) RegionStatsAll(ctx context.Context) (map[string]RegionStats, error) {
	agents, err := r.ListOnline(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]RegionStats, len(agents))
	for _, agent := range agents {
		region := agent.Region
		if region == "" {
			region = "unassigned"
		}
		entry := stats[region]
		entry.TotalAgents++
		if agent.Status == domain.StatusAvailable {
			entry.Available++
		}
		entry.TotalLoad += agent.CurrentLoad
		stats[region] = entry
	}
	return stats, nil
}

func (r *Registry) currentLoad(ctx context.Context, agentID string) (int64, error) {
	raw, ok, err := r.store.Get(ctx, domain.AgentLoadKey(agentID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	load, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil // graceful degradation for corrupt data
	}
	return load, nil
}

// publish sends an agent event to the presence channel. The state mutation
// is already durable at this point; a publish failure only delays observers,
// which converge again from the initial_state snapshot on reconnect.
func (r *Registry) publish(ctx context.Context, ev domain.AgentEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal agent event", "type", ev.Type, "error", err)
		return
	}
	if err := r.store.Publish(ctx, domain.ChannelAgentEvents, data); err != nil {
		slog.Error("Failed to publish agent event", "type", ev.Type, "agent_id", ev.AgentID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(domain.ChannelAgentEvents).Inc()
}

func agentFromHash(fields map[string]string, load int64) *domain.Agent {
	agent := &domain.Agent{
		ID:          fields["id"],
		Name:        fields["name"],
		Region:      fields["region"],
		Status:      domain.AgentStatus(fields["status"]),
		CurrentLoad: load,
	}
	if raw := fields["skills"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &agent.Skills)
	}
	if t, err := time.Parse(timeLayout, fields["login_time"]); err == nil {
		agent.LoginTime = t
	}
	if t, err := time.Parse(timeLayout, fields["last_activity"]); err == nil {
		agent.LastActivity = t
	}
	return agent
}
