package domain

import "time"

// Regions is the fixed set of valid region codes for sentiment samples
// (ISO 3166-2:PY department codes).
var Regions = []string{
	"PY-ASU", "PY-1", "PY-2", "PY-3", "PY-4", "PY-5", "PY-6", "PY-7",
	"PY-8", "PY-9", "PY-10", "PY-11", "PY-12", "PY-13", "PY-14",
	"PY-15", "PY-16", "PY-19",
}

var regionSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Regions))
	for _, r := range Regions {
		m[r] = struct{}{}
	}
	return m
}()

// ValidRegion reports whether id is a known region code.
func ValidRegion(id string) bool {
	_, ok := regionSet[id]
	return ok
}

// MaxHistoryPerRegion bounds the per-region sentiment history ring. Entries
// beyond the bound are dropped, not archived.
const MaxHistoryPerRegion = 100

// SentimentSample is a single scored survey event. Append-only; never
// mutated after creation.
type SentimentSample struct {
	ID        string         `json:"id"`
	Score     float64        `json:"score"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RegionSnapshot is the aggregate view of a region. Average is nil when no
// samples have been recorded yet, never a misleading zero.
type RegionSnapshot struct {
	RegionID   string   `json:"region_id"`
	Average    *float64 `json:"average"`
	TotalCount int64    `json:"total_count"`
}
