package domain

import "time"

// AgentStatus is an agent's availability state. The wire values are the
// Spanish labels the dashboard and agent clients already speak.
type AgentStatus string

const (
	StatusAvailable AgentStatus = "disponible"
	StatusBusy      AgentStatus = "ocupado"
	StatusBreak     AgentStatus = "descanso"
	StatusOffline   AgentStatus = "desconectado"
)

// ValidAgentStatus reports whether s is one of the known status values.
func ValidAgentStatus(s AgentStatus) bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusBreak, StatusOffline:
		return true
	}
	return false
}

// DefaultSkills is assigned on login when the agent declares none.
var DefaultSkills = []string{"voice", "whatsapp"}

// Agent is the presence record for a live human agent. The registry is the
// only component that mutates agent fields; the assignment engine owns the
// load counter exclusively.
type Agent struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Region       string      `json:"region,omitempty"`
	Skills       []string    `json:"skills"`
	Status       AgentStatus `json:"status"`
	CurrentLoad  int64       `json:"current_connections"`
	LoginTime    time.Time   `json:"login_time"`
	LastActivity time.Time   `json:"last_activity"`
}

// HasSkills reports whether the agent's skill set is a superset of required.
func (a *Agent) HasSkills(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(a.Skills))
	for _, s := range a.Skills {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// Conversation assignment lifecycle states.
const (
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
)

// ConversationAssignment binds a conversation to an agent. AgentID is
// immutable once set; re-assignment requires a release and a new assignment.
type ConversationAssignment struct {
	ConversationID string    `json:"conversation_id"`
	AgentID        string    `json:"agent_id"`
	Channel        string    `json:"channel"`
	AssignedAt     time.Time `json:"assigned_at"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
	Status         string    `json:"status"`
}
