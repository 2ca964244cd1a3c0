// Package cache holds the in-process LRU used to debounce export work.
// It never stores ledger figures: every report is recomputed from the
// store.
package cache

import (
	"fmt"
	"log/slog"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Debouncer lets one occurrence of a key through per window.
type Debouncer struct {
	seen *LRUCache[struct{}]
}

// NewDebouncer tracks at most maxKeys keys. A zero window lets every
// occurrence through.
func NewDebouncer(maxKeys int, window time.Duration) *Debouncer {
	return &Debouncer{seen: NewLRUCache[struct{}](maxKeys, window)}
}

// Allow reports whether key has not been allowed within the window, and
// starts a new window for it if so.
func (d *Debouncer) Allow(key string) bool {
	if d.seen.ttl <= 0 {
		return true
	}
	return d.seen.SetIfAbsent(key, struct{}{})
}

// Forget clears key so its next occurrence is allowed, used when the work
// it guarded failed.
func (d *Debouncer) Forget(key string) { d.seen.Delete(key) }

func (d *Debouncer) CleanExpired() int { return d.seen.CleanExpired() }

// LedgerKey is the debounce key of a workspace month.
func LedgerKey(workspaceID int64, month string) string {
	return fmt.Sprintf("%d:%s", workspaceID, month)
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				slog.Debug("Expired cache entries removed", "component", "cache", "count", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup routine and waits for it to exit. It must be
// called at most once, after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
