// Package cache keeps computed amortization results keyed by debt ID so that
// listing simulations does not rerun the engine for every request.
package cache

import (
	"context"
	"time"

	"github.com/mcclellann/fredDebt/pkg/models"
)

// Cache stores simulation results. A failed Set or Delete leaves the caller to
// recompute, so implementations report errors rather than retrying.
type Cache interface {
	Get(ctx context.Context, key string) (*models.AmortizationResult, bool)
	Set(ctx context.Context, key string, result *models.AmortizationResult) error
	Delete(ctx context.Context, key string) error
}

// Cleaner is implemented by caches that must purge expired entries themselves.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for registered caches.
type Manager struct {
	caches      []Cleaner
	onClean     func(removed int)
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a manager. onClean, if not nil, is called after every sweep.
func NewManager(onClean func(removed int)) *Manager {
	return &Manager{
		onClean:     onClean,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
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
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if m.onClean != nil {
				m.onClean(removed)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine started by StartCleanup and waits for it.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
