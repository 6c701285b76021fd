package domain

import "time"

// Event type discriminators pushed to connected clients.
const (
	EventLogin           = "login"
	EventLogout          = "logout"
	EventStatusChange    = "status_change"
	EventAssignment      = "assignment"
	EventRelease         = "release"
	EventSentimentUpdate = "sentiment_update"
	EventInitialState    = "initial_state"
)

// Envelope is the minimal shape every event on the wire must satisfy.
// The hub drops payloads that do not parse into it.
type Envelope struct {
	Type string `json:"type"`
}

// AgentEvent is published on the presence channel for login, logout,
// status_change, assignment and release.
type AgentEvent struct {
	Type           string      `json:"type"`
	AgentID        string      `json:"agent_id"`
	AgentName      string      `json:"agent_name,omitempty"`
	Status         AgentStatus `json:"status,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Channel        string      `json:"channel,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// SentimentEvent is published on the sentiment channel for every recorded
// sample, carrying the post-increment aggregate.
type SentimentEvent struct {
	Type       string         `json:"type"`
	RegionID   string         `json:"region_id"`
	Score      float64        `json:"score"`
	Average    float64        `json:"average"`
	TotalCount int64          `json:"total_count"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AgentsInitialState is the snapshot sent to a presence-stream client before
// any incremental event.
type AgentsInitialState struct {
	Type   string  `json:"type"`
	Agents []Agent `json:"agents"`
}

// SentimentInitialState is the snapshot sent to a sentiment-stream client
// before any incremental event.
type SentimentInitialState struct {
	Type     string             `json:"type"`
	Averages map[string]float64 `json:"averages"`
}
