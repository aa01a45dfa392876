// Package data provides the in-memory result store of the receitas API.
// Results are kept under a random UUID until their TTL elapses; the
// scheduler purges expired entries and readers never see them.
package data

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/receitas-api/interfaces"
	"github.com/giygas/receitas-api/logging"
	"github.com/giygas/receitas-api/prescription/entities"
	"github.com/google/uuid"
)

// Compile-time check to ensure ResultContainer implements ResultStore
var _ interfaces.ResultStore = (*ResultContainer)(nil)

// ResultContainer holds extraction results keyed by ID
type ResultContainer struct {
	mu      sync.RWMutex
	results map[uuid.UUID]entities.StoredResult
	ttl     time.Duration
	now     func() time.Time

	lastExtraction  atomic.Value // time.Time
	serverStartTime atomic.Value // time.Time
}

// NewResultContainer creates an empty store whose entries live for ttl
func NewResultContainer(ttl time.Duration) *ResultContainer {
	rc := &ResultContainer{
		results: make(map[uuid.UUID]entities.StoredResult),
		ttl:     ttl,
		now:     time.Now,
	}
	rc.lastExtraction.Store(time.Time{})
	rc.serverStartTime.Store(time.Time{})
	return rc
}

// Save stores res under a new ID
func (rc *ResultContainer) Save(res entities.PrescriptionResult) entities.StoredResult {
	now := rc.now()
	stored := entities.StoredResult{
		ID:        uuid.New(),
		Result:    res,
		CreatedAt: now,
		ExpiresAt: now.Add(rc.ttl),
	}

	rc.mu.Lock()
	rc.results[stored.ID] = stored
	rc.mu.Unlock()

	rc.lastExtraction.Store(now)
	return stored
}

// Get returns the result stored under id unless it has expired
func (rc *ResultContainer) Get(id uuid.UUID) (entities.StoredResult, bool) {
	rc.mu.RLock()
	stored, ok := rc.results[id]
	rc.mu.RUnlock()

	if !ok || stored.Expired(rc.now()) {
		return entities.StoredResult{}, false
	}
	return stored, true
}

// Purge removes expired results and returns how many were dropped
func (rc *ResultContainer) Purge() int {
	now := rc.now()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for id, stored := range rc.results {
		if stored.Expired(now) {
			delete(rc.results, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of results held, expired ones included until purged
func (rc *ResultContainer) Count() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.results)
}

// TTL returns how long results are kept
func (rc *ResultContainer) TTL() time.Duration {
	return rc.ttl
}

// GetLastExtraction returns when the last result was saved, zero if none
func (rc *ResultContainer) GetLastExtraction() time.Time {
	if v := rc.lastExtraction.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last extraction time")
	return time.Time{}
}

// SetServerStartTime sets the server start time
func (rc *ResultContainer) SetServerStartTime(startTime time.Time) {
	rc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (rc *ResultContainer) GetServerStartTime() time.Time {
	if v := rc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}
