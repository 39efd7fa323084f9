package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredAccountPurger removes unverified registrations whose window has
// closed. The Mongo store relies on a TTL index as well; running the purge
// there is harmless.
type ExpiredAccountPurger interface {
	PurgeExpiredUnverified(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically purges expired unverified accounts
type CleanupManager struct {
	accounts ExpiredAccountPurger
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(accounts ExpiredAccountPurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		accounts: accounts,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the purge immediately and then on every tick until ctx is done
// or Stop is called.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	purged, err := cm.accounts.PurgeExpiredUnverified(cleanupCtx, cm.now())
	if err != nil {
		cm.logger.Error("failed to purge expired registrations", slog.Any("error", err))
		return
	}

	if purged > 0 {
		cm.logger.Info("expired registrations purged", slog.Int64("accounts_deleted", purged))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
