// Package state defines the shared key-value store contract the core runs
// on. All cross-instance coordination happens through this interface plus
// its pub/sub channels; there is no other inter-instance communication.
package state

import (
	"context"
	"time"
)

// Store is the atomic primitive layer: counters, hashes, sets, bounded
// lists, key expiry and publish/subscribe. Every operation is a network
// round-trip that may fail transiently; implementations retry bounded at
// this boundary, so callers treat a returned error as fatal for the request.
type Store interface {
	// Plain string keys.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Atomic counters.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	IncrByFloat(ctx context.Context, key string, delta float64) (float64, error)

	// Hashes.
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// Sets.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Bounded lists, newest first.
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Pub/sub.
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) Subscription
}

// Subscription is an active pub/sub stream. Messages ends when the
// subscription is closed or its context is cancelled.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
