package quota

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each quota window as a JSON list under its key with the
// window as TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]time.Time, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeWindow(key, data), nil
}

// decodeWindow parses a stored window. A corrupt window is reset rather than
// blocking the user forever.
func decodeWindow(key string, data []byte) []time.Time {
	var entries []time.Time
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warnf("[Quota] Resetting corrupt window %s: %v", key, err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	return entries
}

func (s *RedisStore) Save(ctx context.Context, key string, entries []time.Time, ttl time.Duration) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// MemoryStore is an in-process Store, used in tests and when no Redis is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]time.Time{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.entries[key]...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, entries []time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]time.Time(nil), entries...)
	return nil
}
