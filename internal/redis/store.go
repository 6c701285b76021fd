package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	apperrors "github.com/jaimehuang168/VoxParaguay2026/internal/errors"
	"github.com/jaimehuang168/VoxParaguay2026/internal/metrics"
	"github.com/jaimehuang168/VoxParaguay2026/internal/platform/retry"
	"github.com/jaimehuang168/VoxParaguay2026/internal/state"
)

const subscriptionBuffer = 64

// Store implements state.Store on a Redis client. Transient failures are
// retried a bounded number of times with exponential backoff; exhausted
// retries surface as errors, never silently swallowed.
type Store struct {
	rdb    *goredis.Client
	policy retry.Policy
}

func NewStore(rdb *goredis.Client) *Store {
	return &Store{
		rdb: rdb,
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 50 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying store operation", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

var _ state.Store = (*Store)(nil)

// classify treats key misses and cancelled contexts as permanent for the
// current request; everything else is retried.
func classify(err error) retry.Action {
	if errors.Is(err, goredis.Nil) {
		return retry.Stop
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	return retry.Retry
}

func do[T any](ctx context.Context, s *Store, op func() (T, error)) (T, error) {
	v, err := retry.Do(ctx, s.policy, classify, op)
	return v, wrapExhausted(err)
}

func doVoid(ctx context.Context, s *Store, op func() error) error {
	return wrapExhausted(retry.DoVoid(ctx, s.policy, classify, op))
}

// wrapExhausted turns retry exhaustion into the external-collaborator error
// type so the HTTP layer answers 502 instead of a generic 500.
func wrapExhausted(err error) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return apperrors.ExternalError("shared store unavailable", err)
	}
	return err
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := do(ctx, s, func() (string, error) {
		return s.rdb.Get(ctx, key).Result()
	})
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.Set(ctx, key, value, 0).Err()
	})
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.Del(ctx, keys...).Err()
	})
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.Expire(ctx, key, ttl).Err()
	})
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return do(ctx, s, func() (int64, error) {
		return s.rdb.IncrBy(ctx, key, delta).Result()
	})
}

func (s *Store) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	return do(ctx, s, func() (float64, error) {
		return s.rdb.IncrByFloat(ctx, key, delta).Result()
	})
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make(map[string]any, len(fields))
	for f, v := range fields {
		args[f] = v
	}
	return doVoid(ctx, s, func() error {
		return s.rdb.HSet(ctx, key, args).Err()
	})
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := do(ctx, s, func() (string, error) {
		return s.rdb.HGet(ctx, key, field).Result()
	})
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return do(ctx, s, func() (map[string]string, error) {
		return s.rdb.HGetAll(ctx, key).Result()
	})
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.HDel(ctx, key, fields...).Err()
	})
}

func (s *Store) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return do(ctx, s, func() (int64, error) {
		return s.rdb.HIncrBy(ctx, key, field, delta).Result()
	})
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return doVoid(ctx, s, func() error {
		return s.rdb.SAdd(ctx, key, args...).Err()
	})
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return doVoid(ctx, s, func() error {
		return s.rdb.SRem(ctx, key, args...).Err()
	})
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return do(ctx, s, func() ([]string, error) {
		return s.rdb.SMembers(ctx, key).Result()
	})
}

func (s *Store) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return doVoid(ctx, s, func() error {
		return s.rdb.LPush(ctx, key, args...).Err()
	})
}

func (s *Store) LTrim(ctx context.Context, key string, start, stop int64) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.LTrim(ctx, key, start, stop).Err()
	})
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return do(ctx, s, func() ([]string, error) {
		return s.rdb.LRange(ctx, key, start, stop).Result()
	})
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return doVoid(ctx, s, func() error {
		return s.rdb.Publish(ctx, channel, payload).Err()
	})
}

// Subscribe opens a pub/sub stream. go-redis reconnects the underlying
// subscription on transient failures, so the message channel survives brief
// store outages.
func (s *Store) Subscribe(ctx context.Context, channel string) state.Subscription {
	sub := s.rdb.Subscribe(ctx, channel)
	out := make(chan []byte, subscriptionBuffer)

	go func() {
		defer close(out)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				metrics.EventsReceivedTotal.WithLabelValues(channel).Inc()
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return &subscription{sub: sub, ch: out}
}

type subscription struct {
	sub *goredis.PubSub
	ch  chan []byte
}

func (s *subscription) Messages() <-chan []byte { return s.ch }

func (s *subscription) Close() error {
	return s.sub.Close()
}
