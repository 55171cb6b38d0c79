package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store deduplicates broker deliveries with redis markers. A marker is
// scoped to the consumer group so independent services each see a
// message exactly once. Callers check Seen before handling and Mark
// only after the handler's effects are durable; a crash in between
// leaves the offset uncommitted and the marker unset, so the redelivery
// is handled again.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(group, topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%s:%d:%d", group, topic, partition, offset)
}

// Seen reports whether the key was marked by an earlier delivery. Read
// only; it never sets the marker itself.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records that the key's message has been fully handled.
func (s *Store) Mark(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}
