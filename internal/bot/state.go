package bot

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// stateTTL bounds how long an abandoned conversation survives.
const stateTTL = 30 * time.Minute

// State is where a chat currently sits in a multi-step flow.
type State struct {
	Flow string            `json:"flow"`
	Step string            `json:"step"`
	Data map[string]string `json:"data,omitempty"`
}

// StateStore persists conversation state per chat so a bot restart
// does not lose in-flight flows.
type StateStore interface {
	Put(ctx context.Context, chatID int64, st State) error
	Get(ctx context.Context, chatID int64) (State, bool, error)
	Delete(ctx context.Context, chatID int64) error
}

// RedisStateStore keeps conversation state in Redis.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

var _ StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore constructs a Redis-backed state store.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: "botstate:"}
}

func (s *RedisStateStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

func (s *RedisStateStore) Put(ctx context.Context, chatID int64, st State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(chatID), payload, stateTTL).Err()
}

func (s *RedisStateStore) Get(ctx context.Context, chatID int64) (State, bool, error) {
	payload, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if err == redis.Nil {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

func (s *RedisStateStore) Delete(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, s.key(chatID)).Err()
}

// MemoryStateStore is the in-process fallback when Redis is not
// configured. State does not survive a restart.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[int64]memoryState
}

type memoryState struct {
	state     State
	expiresAt time.Time
}

var _ StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore constructs an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{entries: make(map[int64]memoryState)}
}

func (s *MemoryStateStore) Put(_ context.Context, chatID int64, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chatID] = memoryState{state: st, expiresAt: time.Now().Add(stateTTL)}
	return nil
}

func (s *MemoryStateStore) Get(_ context.Context, chatID int64) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[chatID]
	if !ok {
		return State{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, chatID)
		return State{}, false, nil
	}
	return entry.state, true, nil
}

func (s *MemoryStateStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}
