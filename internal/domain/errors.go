package domain

import "errors"

var (
	ErrAgentNotFound        = errors.New("agent not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNoAgentAvailable     = errors.New("no agent available")
)
