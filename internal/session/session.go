package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Mode pending input mode of a user
type Mode string

const (
	ModeIdle          Mode = ""
	ModeAwaitingText  Mode = "awaiting_text"
	ModeAwaitingPhoto Mode = "awaiting_photo"
)

// Session per-user chat state
type Session struct {
	City      string             `json:"city"`
	Mode      Mode               `json:"mode"`
	PartType  models.PartType    `json:"part_type"`
	Price     models.PriceFilter `json:"price"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store per-user sessions. Update runs fn under a per-user lock so
// read-modify-write of one user's state is serialized.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error)
}

// New builds the store selected by SESSION_STORE
func New(ctx context.Context, cfg *config.SessionConfig, defaultCity string) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(defaultCity), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.TTL, defaultCity), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}

func fresh(defaultCity string) Session {
	return Session{
		City:     defaultCity,
		PartType: models.PartTypeAny,
		Price:    models.PriceAny,
	}
}

// MemoryStore process-local sessions
type MemoryStore struct {
	defaultCity string
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
	locks    map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(defaultCity string) *MemoryStore {
	return &MemoryStore{
		defaultCity: defaultCity,
		now:         time.Now,
		sessions:    make(map[string]Session),
		locks:       make(map[string]*sync.Mutex),
	}
}

// Get implements Store
func (m *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	return fresh(m.defaultCity), nil
}

func (m *MemoryStore) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Update implements Store. The session is not saved when fn fails.
func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s, _ := m.Get(ctx, userID)
	if err := fn(&s); err != nil {
		return Session{}, err
	}
	s.UpdatedAt = m.now()

	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return s, nil
}
