// Package settings persists process-wide key/value state: the API
// credential and the onboarding flags.
package settings

import (
	"context"
	"sync"
)

const (
	KeyAPIKey    = "api-key"
	KeyFirstTime = "first-time"
	KeyAOIUsed   = "aoi-used"
)

// Store is the settings collaborator. Get reports ok=false for unset keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Bool reads a boolean flag; unset or unparsable values are false.
func Bool(ctx context.Context, s Store, key string) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}
