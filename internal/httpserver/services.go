package httpserver

import (
	"context"
	"time"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	"github.com/jaimehuang168/VoxParaguay2026/internal/presence"
	"github.com/jaimehuang168/VoxParaguay2026/internal/sentiment"
)

// AgentRegistry is the presence surface the handlers need.
type AgentRegistry interface {
	Login(ctx context.Context, agentID, name, region string, skills []string) (*domain.Agent, error)
	Logout(ctx context.Context, agentID string) (bool, error)
	SetStatus(ctx context.Context, agentID string, status domain.AgentStatus) (bool, error)
	GetStatus(ctx context.Context, agentID string) (*domain.Agent, error)
	ListOnline(ctx context.Context) ([]domain.Agent, error)
	Heartbeat(ctx context.Context, agentID string) (bool, error)
	ReapStale(ctx context.Context, timeout time.Duration) (int, error)
	LoadDistribution(ctx context.Context) (map[string]int64, error)
	RegionStatsAll(ctx context.Context) (map[string]presence.RegionStats, error)
}

// AssignmentEngine routes conversations to agents.
type AssignmentEngine interface {
	Assign(ctx context.Context, conversationID, channel, region string, requiredSkills []string) (*domain.Agent, error)
	Release(ctx context.Context, conversationID, agentID string) (bool, error)
	GetAssignment(ctx context.Context, conversationID string) (*domain.ConversationAssignment, error)
}

// SentimentService records and reads regional aggregates.
type SentimentService interface {
	Record(ctx context.Context, regionID string, score float64, metadata map[string]any) (*domain.RegionSnapshot, error)
	GetRegion(ctx context.Context, regionID string) (*domain.RegionSnapshot, error)
	GetAll(ctx context.Context) (map[string]float64, error)
	GetHistory(ctx context.Context, regionID string, limit int64) ([]domain.SentimentSample, error)
	ResetRegion(ctx context.Context, regionID string) error
	ResetAll(ctx context.Context) error
	Stats(ctx context.Context) (*sentiment.Stats, error)
}
