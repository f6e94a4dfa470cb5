package linkage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used by tests and local runs without a
// database.
type MemoryStore struct {
	mu    sync.Mutex
	links map[Kind]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[Kind]map[string]string)}
}

func (m *MemoryStore) GetLinkage(ctx context.Context, kind Kind, localID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.links[kind][localID]
	return v, ok, nil
}

func (m *MemoryStore) PutLinkageIfAbsent(ctx context.Context, kind Kind, localID, remoteID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[kind] == nil {
		m.links[kind] = make(map[string]string)
	}
	if existing, ok := m.links[kind][localID]; ok {
		return existing, nil
	}
	m.links[kind][localID] = remoteID
	return remoteID, nil
}

func (m *MemoryStore) FindLocalID(ctx context.Context, kind Kind, remoteID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for local, remote := range m.links[kind] {
		if remote == remoteID {
			return local, true, nil
		}
	}
	return "", false, nil
}

// Len returns the number of linkages of one kind.
func (m *MemoryStore) Len(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links[kind])
}
