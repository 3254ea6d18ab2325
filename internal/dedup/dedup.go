// Package dedup drops webhook retries. Twilio re-delivers a message when the
// webhook is slow to answer, so every MessageSid is processed at most once.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// dedup:{service}:{message id}
	KeyDedup = "dedup:%s:%s"

	TTLDedup = 48 * time.Hour
)

// Deduper reports whether a message id is seen for the first time
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

// RedisDeduper shares seen ids across instances
type RedisDeduper struct {
	rdb     *redis.Client
	service string
	ttl     time.Duration
}

// NewRedisClient connects to addr
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

func NewRedisDeduper(rdb *redis.Client, service string) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, service: service, ttl: TTLDedup}
}

// Key returns the redis key for a message id
func Key(service, id string) string {
	return fmt.Sprintf(KeyDedup, service, id)
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, Key(d.service, id), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: setnx %s: %w", id, err)
	}
	return ok, nil
}

// Ping checks the redis connection
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

// MemoryDeduper keeps seen ids in process. Entries older than the TTL are
// forgotten on the next lookup.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, at := range d.seen {
		if now.Sub(at) >= d.ttl {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = now
	return true, nil
}
