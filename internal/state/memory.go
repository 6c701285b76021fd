package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const subscriptionBuffer = 64

// MemoryStore is an in-process Store for tests and single-instance
// development mode. Pub/sub delivery is synchronous with a bounded buffer
// per subscriber; slow subscribers drop messages, mirroring the fire-and-
// forget semantics of the real store.
type MemoryStore struct {
	clock clockwork.Clock

	mu       sync.Mutex
	values   map[string]string
	hashes   map[string]map[string]string
	sets     map[string]map[string]struct{}
	lists    map[string][]string
	expireAt map[string]time.Time
	subs     map[string]map[*memorySubscription]struct{}
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		values:   make(map[string]string),
		hashes:   make(map[string]map[string]string),
		sets:     make(map[string]map[string]struct{}),
		lists:    make(map[string][]string),
		expireAt: make(map[string]time.Time),
		subs:     make(map[string]map[*memorySubscription]struct{}),
	}
}

var _ Store = (*MemoryStore)(nil)

// purgeExpired removes a key in every namespace once its TTL has passed.
// Callers must hold mu.
func (s *MemoryStore) purgeExpired(key string) {
	deadline, ok := s.expireAt[key]
	if !ok || s.clock.Now().Before(deadline) {
		return
	}
	delete(s.expireAt, key)
	delete(s.values, key)
	delete(s.hashes, key)
	delete(s.sets, key)
	delete(s.lists, key)
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.lists, key)
		delete(s.expireAt, key)
	}
	return nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireAt[key] = s.clock.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	cur := int64(0)
	if raw, ok := s.values[key]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q is not an integer: %w", key, err)
		}
		cur = parsed
	}
	cur += delta
	s.values[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *MemoryStore) IncrByFloat(_ context.Context, key string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	cur := 0.0
	if raw, ok := s.values[key]; ok {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q is not a float: %w", key, err)
		}
		cur = parsed
	}
	cur += delta
	s.values[key] = strconv.FormatFloat(cur, 'f', -1, 64)
	return cur, nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		delete(s.hashes[key], f)
	}
	return nil
}

func (s *MemoryStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	cur := int64(0)
	if raw, ok := h[field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q at %q is not an integer: %w", field, key, err)
		}
		cur = parsed
	}
	cur += delta
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.sets[key], m)
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) LPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	list := s.lists[key]
	for _, v := range values {
		list = append([]string{v}, list...)
	}
	s.lists[key] = list
	return nil
}

func (s *MemoryStore) LTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = list[start : stop+1]
	return nil
}

func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(key)
	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (s *MemoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[channel] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case sub.ch <- msg:
		default:
			// Subscriber is not keeping up, drop.
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, channel string) Subscription {
	sub := &memorySubscription{
		store:   s,
		channel: channel,
		ch:      make(chan []byte, subscriptionBuffer),
	}

	s.mu.Lock()
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[*memorySubscription]struct{})
	}
	s.subs[channel][sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub
}

type memorySubscription struct {
	store   *MemoryStore
	channel string
	ch      chan []byte
	once    sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs[s.channel], s)
		s.store.mu.Unlock()
		close(s.ch)
	})
	return nil
}
