package domain

// Shared-store key shapes and pub/sub channels. Every process instance
// coordinates exclusively through these keys.
const (
	OnlineAgentsKey     = "agents:online"
	SentimentCurrentKey = "sentiment:current"

	ChannelAgentEvents      = "agent:events"
	ChannelSentimentUpdates = "sentiment:updates"
)

func AgentKey(id string) string        { return "agent:" + id }
func AgentStatusKey(id string) string  { return "agent:status:" + id }
func AgentLoadKey(id string) string    { return "agent:load:" + id }
func AgentMetricsKey(id string) string { return "agent:metrics:" + id }

func RegionAgentsKey(region string) string { return "agents:region:" + region }

func ConversationKey(id string) string { return "conversation:" + id }

func SentimentSumKey(region string) string     { return "sentiment:dept:" + region + ":sum" }
func SentimentCountKey(region string) string   { return "sentiment:dept:" + region + ":count" }
func SentimentHistoryKey(region string) string { return "sentiment:history:" + region }
