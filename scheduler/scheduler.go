// Package scheduler runs the background maintenance of the receitas API:
// purging expired extraction results and warning when the service has
// gone quiet for too long.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/receitas-api/interfaces"
	"github.com/giygas/receitas-api/logging"
	"github.com/giygas/receitas-api/metrics"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	purgeInterval    = time.Minute
	activityInterval = time.Hour
)

// Scheduler owns the gocron jobs that maintain the result store
type Scheduler struct {
	store      interfaces.ResultStore
	staleAfter time.Duration
	scheduler  *gocron.Scheduler
	now        func() time.Time
}

// NewScheduler creates a scheduler for store. staleAfter is how long the
// service may go without an extraction before a warning is logged; zero
// disables the warning.
func NewScheduler(store interfaces.ResultStore, staleAfter time.Duration) *Scheduler {
	return &Scheduler{
		store:      store,
		staleAfter: staleAfter,
		scheduler:  gocron.NewScheduler(time.Local),
		now:        time.Now,
	}
}

// Start registers the jobs and runs them asynchronously
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(purgeInterval).Do(func() { s.purgeExpired() }); err != nil {
		logging.Error("Failed to schedule result purge", "error", err)
		return fmt.Errorf("failed to schedule result purge: %w", err)
	}

	if s.staleAfter > 0 {
		if _, err := s.scheduler.Every(activityInterval).WaitForSchedule().Do(func() { s.checkActivity() }); err != nil {
			logging.Error("Failed to schedule activity check", "error", err)
			return fmt.Errorf("failed to schedule activity check: %w", err)
		}
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "purge_interval", purgeInterval.String(), "result_ttl", s.store.TTL().String())
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// purgeExpired drops expired results and publishes the store size
func (s *Scheduler) purgeExpired() int {
	removed := s.store.Purge()
	remaining := s.store.Count()
	metrics.StoredResults.Set(float64(remaining))

	if removed > 0 {
		logging.Debug("Purged expired results", "removed", removed, "remaining", remaining)
	}
	return removed
}

// checkActivity warns when nothing was extracted within staleAfter.
// Before the first extraction the server start time is the reference.
func (s *Scheduler) checkActivity() bool {
	last := s.store.GetLastExtraction()
	if last.IsZero() {
		last = s.store.GetServerStartTime()
	}
	if last.IsZero() {
		return false
	}

	idle := s.now().Sub(last)
	if idle <= s.staleAfter {
		return false
	}

	logging.Warn("No prescription extracted recently", "idle", idle.Round(time.Minute).String(), "threshold", s.staleAfter.String())
	return true
}
