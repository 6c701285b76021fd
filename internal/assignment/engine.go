// Package assignment implements Least-Connections selection and the atomic
// load bookkeeping around it. The load counter is the only agent field this
// package mutates.
package assignment

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
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

const timeLayout = time.RFC3339Nano

// completedConversationTTL keeps finished conversation records around long
// enough for audits and duplicate-release detection, then lets them expire.
const completedConversationTTL = 24 * time.Hour

type Engine struct {
	store state.Store
	clock clockwork.Clock
}

func NewEngine(store state.Store, clock clockwork.Clock) *Engine {
	return &Engine{store: store, clock: clock}
}

type candidate struct {
	id   string
	load int64
}

// Assign selects the available agent with the fewest active conversations
// and increments its load counter. Candidates come from the region index
// when a region is given; an empty regional pool falls back to the full
// online pool so a conversation is never dropped while agents exist
// elsewhere. Ties resolve to the lexicographically smallest agent id.
//
// The read-loads-then-increment sequence is deliberately not a CAS loop:
// two concurrent assigns may briefly pick the same least-loaded agent, but
// the increments themselves are atomic so counters never corrupt.
func (e *Engine) Assign(ctx context.Context, conversationID, channel, region string, requiredSkills []string) (*domain.Agent, error) {
	if conversationID == "" {
		return nil, apperrors.ValidationError("conversation id must not be empty")
	}

	ids, err := e.candidatePool(ctx, region)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, domain.ErrNoAgentAvailable
	}

	// Sorted iteration makes the tiebreak deterministic instead of leaving
	// it to the store's set ordering.
	slices.Sort(ids)

	candidates, err := e.filterCandidates(ctx, ids, requiredSkills)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoAgentAvailable
	}

	selected := candidates[0]
	for _, c := range candidates[1:] {
		if c.load < selected.load {
			selected = c
		}
	}

	now := e.clock.Now()
	newLoad, err := e.store.IncrBy(ctx, domain.AgentLoadKey(selected.id), 1)
	if err != nil {
		return nil, err
	}

	update := map[string]string{"last_activity": now.Format(timeLayout)}
	if err := e.store.HSet(ctx, domain.AgentKey(selected.id), update); err != nil {
		return nil, err
	}

	conversation := map[string]string{
		"agent_id":    selected.id,
		"channel":     channel,
		"assigned_at": now.Format(timeLayout),
		"status":      domain.AssignmentActive,
	}
	if err := e.store.HSet(ctx, domain.ConversationKey(conversationID), conversation); err != nil {
		return nil, err
	}

	e.publish(ctx, domain.AgentEvent{
		Type:           domain.EventAssignment,
		AgentID:        selected.id,
		ConversationID: conversationID,
		Channel:        channel,
		Timestamp:      now,
	})
	metrics.AssignmentsTotal.WithLabelValues(channel).Inc()

	fields, err := e.store.HGetAll(ctx, domain.AgentKey(selected.id))
	if err != nil {
		return nil, err
	}
	agent := agentFromHash(fields)
	agent.CurrentLoad = newLoad

	slog.Info("Conversation assigned",
		"conversation_id", conversationID,
		"agent_id", selected.id,
		"channel", channel,
		"load", newLoad,
	)
	return agent, nil
}

// Release decrements the agent's load counter and marks the conversation
// completed. Releasing an already-completed conversation is a no-op success;
// an unknown conversation returns false. The load counter is floored at
// zero: a racing double-decrement is compensated immediately so a negative
// value never persists.
func (e *Engine) Release(ctx context.Context, conversationID, agentID string) (bool, error) {
	fields, err := e.store.HGetAll(ctx, domain.ConversationKey(conversationID))
	if err != nil {
		return false, err
	}
	if len(fields) == 0 {
		return false, nil
	}
	if fields["status"] == domain.AssignmentCompleted {
		return true, nil
	}

	newLoad, err := e.store.IncrBy(ctx, domain.AgentLoadKey(agentID), -1)
	if err != nil {
		return false, err
	}
	if newLoad < 0 {
		if _, err := e.store.IncrBy(ctx, domain.AgentLoadKey(agentID), 1); err != nil {
			return false, err
		}
	}

	now := e.clock.Now()
	update := map[string]string{
		"status":       domain.AssignmentCompleted,
		"completed_at": now.Format(timeLayout),
	}
	if err := e.store.HSet(ctx, domain.ConversationKey(conversationID), update); err != nil {
		return false, err
	}
	if err := e.store.Expire(ctx, domain.ConversationKey(conversationID), completedConversationTTL); err != nil {
		return false, err
	}

	if _, err := e.store.HIncrBy(ctx, domain.AgentMetricsKey(agentID), "conversations_completed", 1); err != nil {
		return false, err
	}

	e.publish(ctx, domain.AgentEvent{
		Type:           domain.EventRelease,
		AgentID:        agentID,
		ConversationID: conversationID,
		Timestamp:      now,
	})
	metrics.ReleasesTotal.Inc()

	slog.Info("Conversation released", "conversation_id", conversationID, "agent_id", agentID)
	return true, nil
}

// GetAssignment reads a conversation record, or domain.ErrConversationNotFound.
func (e *Engine) GetAssignment(ctx context.Context, conversationID string) (*domain.ConversationAssignment, error) {
	fields, err := e.store.HGetAll(ctx, domain.ConversationKey(conversationID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrConversationNotFound
	}

	assignment := &domain.ConversationAssignment{
		ConversationID: conversationID,
		AgentID:        fields["agent_id"],
		Channel:        fields["channel"],
		Status:         fields["status"],
	}
	if t, err := time.Parse(timeLayout, fields["assigned_at"]); err == nil {
		assignment.AssignedAt = t
	}
	if t, err := time.Parse(timeLayout, fields["completed_at"]); err == nil {
		assignment.CompletedAt = t
	}
	return assignment, nil
}

func (e *Engine) candidatePool(ctx context.Context, region string) ([]string, error) {
	if region != "" {
		ids, err := e.store.SMembers(ctx, domain.RegionAgentsKey(region))
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return e.store.SMembers(ctx, domain.OnlineAgentsKey)
}

func (e *Engine) filterCandidates(ctx context.Context, ids []string, requiredSkills []string) ([]candidate, error) {
	candidates := make([]candidate, 0, len(ids))
	for _, id := range ids {
		status, ok, err := e.store.Get(ctx, domain.AgentStatusKey(id))
		if err != nil {
			return nil, err
		}
		if !ok || domain.AgentStatus(status) != domain.StatusAvailable {
			continue
		}

		if len(requiredSkills) > 0 {
			raw, ok, err := e.store.HGet(ctx, domain.AgentKey(id), "skills")
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			agent := domain.Agent{}
			if err := json.Unmarshal([]byte(raw), &agent.Skills); err != nil {
				continue
			}
			if !agent.HasSkills(requiredSkills) {
				continue
			}
		}

		load := int64(0)
		if raw, ok, err := e.store.Get(ctx, domain.AgentLoadKey(id)); err != nil {
			return nil, err
		} else if ok {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				load = parsed
			}
		}
		candidates = append(candidates, candidate{id: id, load: load})
	}
	return candidates, nil
}

func (e *Engine) publish(ctx context.Context, ev domain.AgentEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal agent event", "type", ev.Type, "error", err)
		return
	}
	if err := e.store.Publish(ctx, domain.ChannelAgentEvents, data); err != nil {
		slog.Error("Failed to publish agent event", "type", ev.Type, "agent_id", ev.AgentID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(domain.ChannelAgentEvents).Inc()
}

func agentFromHash(fields map[string]string) *domain.Agent {
	agent := &domain.Agent{
		ID:     fields["id"],
		Name:   fields["name"],
		Region: fields["region"],
		Status: domain.AgentStatus(fields["status"]),
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
