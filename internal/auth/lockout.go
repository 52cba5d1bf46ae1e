package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutState is the failed-login bookkeeping for one account key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// Locked reports whether the lock is still in force at now.
func (s LockoutState) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// LockoutStore tracks consecutive failed logins.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// ConnectRedis builds a client from a redis:// URL or a host:port address.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

const lockoutPrefix = "backoffice:lockout:"

// RedisLockoutStore keeps lockout state in Redis hashes so every API
// instance shares it.
type RedisLockoutStore struct {
	client *redis.Client
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (LockoutState, error) {
	data, err := s.client.HGetAll(ctx, lockoutPrefix+key).Result()
	if err != nil {
		return LockoutState{}, err
	}
	state := LockoutState{}
	if raw, ok := data["failed_count"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		if unix, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state, nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error) {
	redisKey := lockoutPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return LockoutState{}, err
	}
	state := LockoutState{FailedCount: int(count)}

	if int(count) >= threshold {
		lockedUntil := now.Add(window).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
			p.Expire(ctx, redisKey, window)
			return nil
		})
		if err != nil {
			return LockoutState{}, err
		}
		state.LockedUntil = &lockedUntil
		return state, nil
	}

	// failures older than the window stop counting
	_ = s.client.Expire(ctx, redisKey, window).Err()
	return state, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutPrefix+key).Err()
}

// MemoryLockoutStore is the single-process fallback used when Redis is not
// configured.
type MemoryLockoutStore struct {
	mu      sync.Mutex
	entries map[string]*memoryLockout
}

type memoryLockout struct {
	state   LockoutState
	expires time.Time
}

func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{entries: make(map[string]*memoryLockout)}
}

func (s *MemoryLockoutStore) Get(ctx context.Context, key string) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expires) {
		return LockoutState{}, nil
	}
	return e.state, nil
}

func (s *MemoryLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.expires) {
		e = &memoryLockout{}
		s.entries[key] = e
	}
	e.state.FailedCount++
	e.expires = now.Add(window)
	if e.state.FailedCount >= threshold {
		lockedUntil := now.Add(window)
		e.state.LockedUntil = &lockedUntil
	}
	return e.state, nil
}

func (s *MemoryLockoutStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var (
	_ LockoutStore = (*RedisLockoutStore)(nil)
	_ LockoutStore = (*MemoryLockoutStore)(nil)
)
