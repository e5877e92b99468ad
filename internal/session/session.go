// Package session tracks issued refresh tokens so logins can be
// revoked before their JWTs expire.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Session is the stored state behind a token hash. Refresh sessions
// carry the hash of their paired access token so revoking one kills
// both.
type Session struct {
	UserID     string    `json:"user_id"`
	IssuedAt   time.Time `json:"issued_at"`
	UserAgent  string    `json:"user_agent,omitempty"`
	AccessHash string    `json:"access_hash,omitempty"`
}

// Store persists sessions keyed by token hash.
type Store interface {
	Put(ctx context.Context, tokenHash string, sess Session, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (Session, bool, error)
	Delete(ctx context.Context, tokenHash string) error
}

// RedisStore keeps sessions in Redis with a TTL per entry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

func (s *RedisStore) Put(ctx context.Context, tokenHash string, sess Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+tokenHash, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, tokenHash string) (Session, bool, error) {
	payload, err := s.client.Get(ctx, s.prefix+tokenHash).Bytes()
	if err == redis.Nil {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	return s.client.Del(ctx, s.prefix+tokenHash).Err()
}

// MemoryStore is the in-process fallback used in tests and when Redis
// is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory constructs an in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, tokenHash string, sess Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{sess: sess}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.sessions[tokenHash] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tokenHash string) (Session, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[tokenHash]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, tokenHash)
		s.mu.Unlock()
		return Session{}, false, nil
	}
	return entry.sess, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}
