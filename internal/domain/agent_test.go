package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasSkills(t *testing.T) {
	agent := &Agent{Skills: []string{"voice", "whatsapp", "guarani"}}

	assert.True(t, agent.HasSkills(nil))
	assert.True(t, agent.HasSkills([]string{"voice"}))
	assert.True(t, agent.HasSkills([]string{"voice", "guarani"}))
	assert.False(t, agent.HasSkills([]string{"voice", "sms"}))

	empty := &Agent{}
	assert.True(t, empty.HasSkills(nil))
	assert.False(t, empty.HasSkills([]string{"voice"}))
}

func TestValidAgentStatus(t *testing.T) {
	for _, s := range []AgentStatus{StatusAvailable, StatusBusy, StatusBreak, StatusOffline} {
		assert.True(t, ValidAgentStatus(s), string(s))
	}
	assert.False(t, ValidAgentStatus("sleeping"))
	assert.False(t, ValidAgentStatus(""))
}

func TestValidRegion(t *testing.T) {
	assert.True(t, ValidRegion("PY-ASU"))
	assert.True(t, ValidRegion("PY-16"))
	assert.True(t, ValidRegion("PY-19"))

	// PY-17 and PY-18 are not assigned department codes.
	assert.False(t, ValidRegion("PY-17"))
	assert.False(t, ValidRegion("PY-18"))
	assert.False(t, ValidRegion("py-asu"))
	assert.False(t, ValidRegion(""))
}
