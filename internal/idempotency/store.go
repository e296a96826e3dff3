// Package idempotency remembers which booking a client-supplied
// Idempotency-Key produced, so a retried create returns the original
// booking instead of failing with a conflict against itself.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "idem:booking:"

	// DefaultPendingTTL bounds how long a claimed key blocks retries when
	// the request holding it never completes.
	DefaultPendingTTL = time.Minute
)

// Entry is what a key is bound to. BookingID is zero while the request that
// claimed the key is still running.
type Entry struct {
	Fingerprint string
	BookingID   int64
}

// Pending reports whether the claiming request has not finished yet.
func (e Entry) Pending() bool {
	return e.BookingID == 0
}

// Store maps idempotency keys to booking ids.
type Store interface {
	// Reserve claims key for a request identified by fingerprint. When the key
	// is already taken ok is false and the existing entry is returned.
	Reserve(ctx context.Context, key, fingerprint string) (existing Entry, ok bool, err error)
	// Complete binds a reserved key to the booking its request created.
	Complete(ctx context.Context, key, fingerprint string, id int64) error
	// Release frees a reserved key after its request failed.
	Release(ctx context.Context, key string) error
}

type RedisStore struct {
	c          *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(c *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{c: c, ttl: ttl, pendingTTL: DefaultPendingTTL}
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string) (Entry, bool, error) {
	// A key can expire between SETNX and GET; one more round settles it.
	for attempt := 0; attempt < 2; attempt++ {
		set, err := s.c.SetNX(ctx, keyPrefix+key, encode(Entry{Fingerprint: fingerprint}), s.pendingTTL).Result()
		if err != nil {
			return Entry{}, false, err
		}
		if set {
			return Entry{}, true, nil
		}

		val, err := s.c.Get(ctx, keyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Entry{}, false, err
		}
		e, err := decode(val)
		return e, false, err
	}
	return Entry{}, false, fmt.Errorf("idempotency key %q is churning", key)
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, id int64) error {
	return s.c.Set(ctx, keyPrefix+key, encode(Entry{Fingerprint: fingerprint, BookingID: id}), s.ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.c.Del(ctx, keyPrefix+key).Err()
}

// encode stores the id first; fingerprints may contain any character.
func encode(e Entry) string {
	return strconv.FormatInt(e.BookingID, 10) + ":" + e.Fingerprint
}

func decode(val string) (Entry, error) {
	idStr, fp, ok := strings.Cut(val, ":")
	if !ok {
		return Entry{}, fmt.Errorf("malformed idempotency entry %q", val)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed idempotency entry %q: %w", val, err)
	}
	return Entry{Fingerprint: fp, BookingID: id}, nil
}

// NopStore never remembers anything; used when Redis is not configured.
type NopStore struct{}

func (NopStore) Reserve(context.Context, string, string) (Entry, bool, error) {
	return Entry{}, true, nil
}

func (NopStore) Complete(context.Context, string, string, int64) error { return nil }

func (NopStore) Release(context.Context, string) error { return nil }

// NewRedisClient builds a client for addr and checks it is reachable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
