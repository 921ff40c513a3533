package app

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry maps device ids to their App.
type Registry struct {
	deps Deps

	mu   sync.Mutex
	apps map[string]*App
}

// NewRegistry creates an empty registry. Every App it creates shares deps.
func NewRegistry(deps Deps) *Registry {
	deps.setDefaults()
	return &Registry{deps: deps, apps: make(map[string]*App)}
}

// Get returns the App for deviceID, creating it on first use.
func (r *Registry) Get(deviceID string) *App {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[deviceID]
	if !ok {
		a = New(r.deps)
		r.apps[deviceID] = a
		r.deps.Logger.Info("Session created", "device_id", deviceID)
	}
	a.Touch()
	return a
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Evict closes and removes sessions idle for longer than ttl.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.deps.Now().Add(-ttl)

	r.mu.Lock()
	var idle []*App
	for id, a := range r.apps {
		if a.LastSeen().Before(cutoff) {
			idle = append(idle, a)
			delete(r.apps, id)
			r.deps.Logger.Info("Evicting idle session", "device_id", id, "last_seen", a.LastSeen())
		}
	}
	r.mu.Unlock()

	for _, a := range idle {
		a.Close()
	}
	return len(idle)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	apps := r.apps
	r.apps = make(map[string]*App)
	r.mu.Unlock()
	for _, a := range apps {
		a.Close()
	}
}

// StartReaper runs a background goroutine that periodically evicts idle
// sessions until ctx is done.
func StartReaper(ctx context.Context, r *Registry, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := r.Evict(ttl); n > 0 {
					slog.Info("Session reaper evicted idle sessions", "count", n, "remaining", r.Len())
				}
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
