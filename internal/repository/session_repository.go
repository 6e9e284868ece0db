package repository

import (
	"context"
	"sync"
)

// SessionRepository persists the key/value state of browser sessions. Every key lives in a
// scope that identifies one browser.
type SessionRepository interface {
	// Get returns ("", false, nil) when the key is absent.
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
	Ping(ctx context.Context) error
}

type memorySessionRepository struct {
	mu     sync.RWMutex
	scopes map[string]map[string]string
}

// NewMemorySessionRepository returns a process-local implementation, used for development
// and tests.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{scopes: make(map[string]map[string]string)}
}

func (r *memorySessionRepository) Get(_ context.Context, scope, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.scopes[scope][key]
	return value, ok, nil
}

func (r *memorySessionRepository) Set(_ context.Context, scope, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.scopes[scope]
	if !ok {
		entries = make(map[string]string)
		r.scopes[scope] = entries
	}
	entries[key] = value
	return nil
}

func (r *memorySessionRepository) Delete(_ context.Context, scope string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.scopes[scope]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(entries, key)
	}
	if len(entries) == 0 {
		delete(r.scopes, scope)
	}
	return nil
}

func (r *memorySessionRepository) Ping(context.Context) error {
	return nil
}
