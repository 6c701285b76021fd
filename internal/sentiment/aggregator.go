// Package sentiment maintains the per-region running sentiment average and
// a bounded trend history, and publishes every update to the sentiment
// channel.
package sentiment

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jaimehuang168/VoxParaguay2026/internal/domain"
	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
	"github.com/jaimehuang168/VoxParaguay2026/internal/metrics"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/logging"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

type Aggregator struct {
	store state.Store
	clock clockwork.Clock
}

func NewAggregator(store state.Store, clock clockwork.Clock) *Aggregator {
	return &Aggregator{store: store, clock: clock}
}

// Record validates and ingests one sentiment sample: increments the region's
// running sum and count, refreshes the denormalized average cache, pushes
// the sample onto the bounded history and publishes a sentiment_update
// event. The sum is incremented before the count so a crash between the two
// at worst leaves the sample uncounted; it never rewrites an already
// committed average.
func (a *Aggregator) Record(ctx context.Context, regionID string, score float64, metadata map[string]any) (*domain.RegionSnapshot, error) {
	if !domain.ValidRegion(regionID) {
		return nil, apperrors.ValidationError("invalid region id").WithField("region_id", regionID)
	}
	if score < -1.0 || score > 1.0 {
		return nil, apperrors.ValidationError("sentiment score must be between -1 and 1").WithField("score", score)
	}

	sum, err := a.store.IncrByFloat(ctx, domain.SentimentSumKey(regionID), score)
	if err != nil {
		return nil, err
	}
	count, err := a.store.IncrBy(ctx, domain.SentimentCountKey(regionID), 1)
	if err != nil {
		return nil, err
	}

	average := round4(sum / float64(count))

	cache := map[string]string{regionID: strconv.FormatFloat(average, 'f', -1, 64)}
	if err := a.store.HSet(ctx, domain.SentimentCurrentKey, cache); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	sample := domain.SentimentSample{
		ID:        uuid.NewString(),
		Score:     score,
		Timestamp: now,
		Metadata:  metadata,
	}
	entry, err := json.Marshal(sample)
	if err != nil {
		return nil, apperrors.InternalError("failed to encode history entry", err)
	}
	historyKey := domain.SentimentHistoryKey(regionID)
	if err := a.store.LPush(ctx, historyKey, string(entry)); err != nil {
		return nil, err
	}
	if err := a.store.LTrim(ctx, historyKey, 0, domain.MaxHistoryPerRegion-1); err != nil {
		return nil, err
	}

	a.publish(ctx, domain.SentimentEvent{
		Type:       domain.EventSentimentUpdate,
		RegionID:   regionID,
		Score:      score,
		Average:    average,
		TotalCount: count,
		Timestamp:  now,
		Metadata:   metadata,
	})
	metrics.SentimentSamplesTotal.WithLabelValues(regionID).Inc()

	return &domain.RegionSnapshot{
		RegionID:   regionID,
		Average:    &average,
		TotalCount: count,
	}, nil
}

// GetRegion recomputes the region aggregate from the ground-truth sum and
// count. Average is nil when the count is zero.
func (a *Aggregator) GetRegion(ctx context.Context, regionID string) (*domain.RegionSnapshot, error) {
	if !domain.ValidRegion(regionID) {
		return nil, apperrors.ValidationError("invalid region id").WithField("region_id", regionID)
	}

	sum, err := a.getFloat(ctx, domain.SentimentSumKey(regionID))
	if err != nil {
		return nil, err
	}
	count, err := a.getInt(ctx, domain.SentimentCountKey(regionID))
	if err != nil {
		return nil, err
	}

	snapshot := &domain.RegionSnapshot{RegionID: regionID, TotalCount: count}
	if count > 0 {
		average := round4(sum / float64(count))
		snapshot.Average = &average
	}
	return snapshot, nil
}

// GetAll reads the denormalized average cache, one hash fetch for all
// regions. Unparseable cache entries degrade to zero rather than failing
// the whole read.
func (a *Aggregator) GetAll(ctx context.Context) (map[string]float64, error) {
	raw, err := a.store.HGetAll(ctx, domain.SentimentCurrentKey)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(raw))
	for region, value := range raw {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			parsed = 0
		}
		out[region] = parsed
	}
	return out, nil
}

// GetHistory returns up to limit samples for the region, newest first.
func (a *Aggregator) GetHistory(ctx context.Context, regionID string, limit int64) ([]domain.SentimentSample, error) {
	if !domain.ValidRegion(regionID) {
		return nil, apperrors.ValidationError("invalid region id").WithField("region_id", regionID)
	}
	if limit <= 0 {
		limit = domain.MaxHistoryPerRegion
	}

	raw, err := a.store.LRange(ctx, domain.SentimentHistoryKey(regionID), 0, limit-1)
	if err != nil {
		return nil, err
	}

	history := make([]domain.SentimentSample, 0, len(raw))
	for _, item := range raw {
		var sample domain.SentimentSample
		if err := json.Unmarshal([]byte(item), &sample); err != nil {
			logging.WithRegion(regionID).Warn("Skipping unparseable history entry", "error", err)
			continue
		}
		history = append(history, sample)
	}
	return history, nil
}

// ResetRegion clears sum, count, history and the cached average for one
// region. Destructive; intended for test and dev use.
func (a *Aggregator) ResetRegion(ctx context.Context, regionID string) error {
	if !domain.ValidRegion(regionID) {
		return apperrors.ValidationError("invalid region id").WithField("region_id", regionID)
	}

	err := a.store.Delete(ctx,
		domain.SentimentSumKey(regionID),
		domain.SentimentCountKey(regionID),
		domain.SentimentHistoryKey(regionID),
	)
	if err != nil {
		return err
	}
	return a.store.HDel(ctx, domain.SentimentCurrentKey, regionID)
}

// ResetAll clears sentiment state for every region.
func (a *Aggregator) ResetAll(ctx context.Context) error {
	for _, regionID := range domain.Regions {
		err := a.store.Delete(ctx,
			domain.SentimentSumKey(regionID),
			domain.SentimentCountKey(regionID),
			domain.SentimentHistoryKey(regionID),
		)
		if err != nil {
			return err
		}
	}
	return a.store.Delete(ctx, domain.SentimentCurrentKey)
}

// Stats summarizes sentiment coverage across all regions.
type Stats struct {
	TotalResponses  int64 `json:"total_responses"`
	RegionsTotal    int   `json:"regions_total"`
	RegionsWithData int   `json:"regions_with_data"`
}

func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{RegionsTotal: len(domain.Regions)}
	for _, regionID := range domain.Regions {
		count, err := a.getInt(ctx, domain.SentimentCountKey(regionID))
		if err != nil {
			return nil, err
		}
		stats.TotalResponses += count
		if count > 0 {
			stats.RegionsWithData++
		}
	}
	return stats, nil
}

func (a *Aggregator) getFloat(ctx context.Context, key string) (float64, error) {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

func (a *Aggregator) getInt(ctx context.Context, key string) (int64, error) {
	raw, ok, err := a.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (a *Aggregator) publish(ctx context.Context, ev domain.SentimentEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal sentiment event", "region_id", ev.RegionID, "error", err)
		return
	}
	if err := a.store.Publish(ctx, domain.ChannelSentimentUpdates, data); err != nil {
		slog.Error("Failed to publish sentiment event", "region_id", ev.RegionID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(domain.ChannelSentimentUpdates).Inc()
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
