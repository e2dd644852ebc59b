package dedup

import (
	"sync"

	"go-job-digest/internal/models"
)

// MemoryStore is an in-process Persistence. Err, when set, fails every call.
type MemoryStore struct {
	mu     sync.Mutex
	keys   []models.DedupKey
	Writes int
	Err    error
}

func NewMemoryStore(keys ...models.DedupKey) *MemoryStore {
	return &MemoryStore{keys: append([]models.DedupKey(nil), keys...)}
}

func (m *MemoryStore) ReadKeys() ([]models.DedupKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.DedupKey(nil), m.keys...), nil
}

func (m *MemoryStore) WriteKeys(keys []models.DedupKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.keys = append([]models.DedupKey(nil), keys...)
	m.Writes++
	return nil
}

// Snapshot returns the stored keys.
func (m *MemoryStore) Snapshot() []models.DedupKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DedupKey(nil), m.keys...)
}
