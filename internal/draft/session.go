package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore holds drafts between wizard steps. Entries expire; nothing in
// a session store is durable.
type SessionStore interface {
	Save(ctx context.Context, d *Draft) error
	Load(ctx context.Context, id uuid.UUID) (*Draft, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// MemoryStore keeps drafts for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]memoryEntry),
	}
}

func (m *MemoryStore) Save(_ context.Context, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
		}
	}

	m.entries[d.ID] = memoryEntry{payload: payload, expires: now.Add(m.ttl)}

	return nil
}

func (m *MemoryStore) Load(_ context.Context, id uuid.UUID) (*Draft, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && m.now().After(e.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}

	var d Draft
	if err := json.Unmarshal(e.payload, &d); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}

	return &d, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)

	return nil
}

// RedisStore keeps drafts in redis so they survive an API restart until the TTL runs out.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id uuid.UUID) string {
	return "supiri:draft:" + id.String()
}

func (r *RedisStore) Save(ctx context.Context, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	if err := r.client.Set(ctx, redisKey(d.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}

	return nil
}

func (r *RedisStore) Load(ctx context.Context, id uuid.UUID) (*Draft, error) {
	payload, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("loading draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}

	return &d, nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}

	return nil
}
