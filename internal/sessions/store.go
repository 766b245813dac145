package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found")

// State is what is remembered about a conversation between turns.
type State struct {
	ConversationID string    `json:"conversation_id"`
	ChatbotID      string    `json:"chatbot_id"`
	UserID         string    `json:"user_id,omitempty"`
	UserEmail      string    `json:"user_email,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	Turns          int       `json:"turns"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store keeps session state for a bounded time. Every Put refreshes the TTL.
type Store interface {
	Get(ctx context.Context, conversationID string) (*State, error)
	Put(ctx context.Context, s *State) error
	Delete(ctx context.Context, conversationID string) error
	Close() error
}

func key(conversationID string) string {
	return "session:" + conversationID
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is a process-local Store with lazy expiry and a periodic sweep.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	m := &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *MemoryStore) Get(_ context.Context, conversationID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key(conversationID)]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key(conversationID))
		return nil, ErrNotFound
	}
	s := e.state
	return &s, nil
}

func (m *MemoryStore) Put(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	st := *s
	st.UpdatedAt = now
	m.entries[key(s.ConversationID)] = memoryEntry{state: st, expires: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key(conversationID))
	return nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryStore) sweep() {
	interval := m.ttl
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for k, e := range m.entries {
				if !now.Before(e.expires) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
