package session

import (
	"context"
	"sync"
)

type record struct {
	name   string
	token  string
	shopID int64
}

// MemoryStore is the non-persistent fallback Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[int64]*record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]*record)}
}

func (m *MemoryStore) SaveUser(_ context.Context, userID int64, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.data[userID]
	if r == nil {
		r = &record{}
		m.data[userID] = r
	}
	r.name, r.token = name, token
	return nil
}

func (m *MemoryStore) User(_ context.Context, userID int64) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.data[userID]
	if r == nil || r.token == "" {
		return "", "", ErrNotFound
	}
	return r.name, r.token, nil
}

func (m *MemoryStore) SetSelectedBarbershop(_ context.Context, userID, shopID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.data[userID]
	if r == nil {
		r = &record{}
		m.data[userID] = r
	}
	r.shopID = shopID
	return nil
}

func (m *MemoryStore) SelectedBarbershop(_ context.Context, userID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := m.data[userID]
	if r == nil || r.shopID == 0 {
		return 0, ErrNotFound
	}
	return r.shopID, nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
