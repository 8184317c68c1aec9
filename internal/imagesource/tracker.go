package imagesource

import (
	"context"
	"sync"
	"time"
)

const UsedPhotoTTL = 24 * time.Hour

// PhotoTracker remembers photos posted recently. clients.ValkeyClient
// implements it.
type PhotoTracker interface {
	IsPhotoUsed(ctx context.Context, key string) (bool, error)
	MarkPhotoUsed(ctx context.Context, key string) error
}

type MemoryTracker struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewMemoryTracker(now func() time.Time) *MemoryTracker {
	if now == nil {
		now = time.Now
	}
	return &MemoryTracker{used: make(map[string]time.Time), now: now}
}

func (m *MemoryTracker) IsPhotoUsed(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expires, ok := m.used[key]
	if !ok {
		return false, nil
	}
	if !m.now().Before(expires) {
		delete(m.used, key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryTracker) MarkPhotoUsed(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used[key] = m.now().Add(UsedPhotoTTL)
	return nil
}
