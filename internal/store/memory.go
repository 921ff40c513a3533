package store

import (
	"context"
	"sync"

	"github.com/ashureev/syncup/internal/domain"
)

// MemoryKV is an in-process KV used by tests and ephemeral runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// MemoryProfiles is an in-process Profiles implementation.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
}

// NewMemoryProfiles returns an empty MemoryProfiles.
func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[string]domain.UserProfile)}
}

// Get implements Profiles.
func (m *MemoryProfiles) Get(_ context.Context, uid string) (*domain.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, nil
	}
	p = p.Clone()
	return &p, nil
}

// Create implements Profiles.
func (m *MemoryProfiles) Create(ctx context.Context, uid, name string, mode domain.Mode) error {
	return m.Upsert(ctx, NewProfile(uid, name, mode))
}

// Upsert implements Profiles.
func (m *MemoryProfiles) Upsert(_ context.Context, p domain.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UID] = p.Clone()
	return nil
}
