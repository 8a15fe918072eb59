package repository

import (
	"context"
	"sync"
	"time"

	"agenda/internal/models"
)

type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
}

type memorySession struct {
	session   *models.AuthSession
	expiresAt time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(_ context.Context, key string) (*models.AuthSession, error) {
	val, ok := r.sessions.Load(key)
	if !ok {
		return nil, nil
	}
	entry := val.(*memorySession)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.sessions.CompareAndDelete(key, val)
		return nil, nil
	}
	cp := *entry.session
	return &cp, nil
}

func (r *MemorySessionRepository) SetSession(_ context.Context, session *models.AuthSession) error {
	cp := *session
	entry := &memorySession{session: &cp}
	if ttl := sessionTTL(session, r.ttl); ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.sessions.Store(session.Key, entry)
	return nil
}

func (r *MemorySessionRepository) ClearSession(_ context.Context, key string) error {
	r.sessions.Delete(key)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
