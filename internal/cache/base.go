// Copyright 2025 Covenant Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides thread-safe in-memory caches for the usage and
// Savings Plan data the advisor analyzes.
//
// Caches update atomically with graceful degradation: if a refresh fails,
// the old data is retained so the advisor keeps operating on potentially
// stale but valid data.
package cache

import (
	"sync"
	"time"
)

// UpdateNotifier is a callback invoked when cache data changes.
type UpdateNotifier func()

// BaseCache provides common cache infrastructure: thread-safety, update
// notifications, and timestamp tracking. It does NOT store the actual data;
// that's handled by the embedding struct.
//
// Usage: embed in a cache struct and use the provided methods.
//
//	type MyCache struct {
//	    BaseCache
//	    data map[string]MyData
//	}
type BaseCache struct {
	// Separate mutexes to prevent deadlock during notification.
	// mu protects the embedding struct's data fields.
	mu sync.RWMutex

	// notifyMu protects the notifiers slice. Separate so notifications
	// can trigger cache reads without deadlocking.
	notifyMu sync.RWMutex

	notifiers  []UpdateNotifier
	lastUpdate time.Time
}

// NewBaseCache creates a new base cache with infrastructure initialized.
func NewBaseCache() BaseCache {
	return BaseCache{
		lastUpdate: time.Time{}, // Zero time indicates never updated
		notifiers:  make([]UpdateNotifier, 0),
	}
}

// Lock acquires the write lock. Use when modifying cache data.
// Must be paired with Unlock().
func (b *BaseCache) Lock() {
	b.mu.Lock()
}

// Unlock releases the write lock.
func (b *BaseCache) Unlock() {
	b.mu.Unlock()
}

// RLock acquires the read lock. Multiple readers can hold it simultaneously.
// Must be paired with RUnlock().
func (b *BaseCache) RLock() {
	b.mu.RLock()
}

// RUnlock releases the read lock.
func (b *BaseCache) RUnlock() {
	b.mu.RUnlock()
}

// RegisterUpdateNotifier adds a callback invoked when cache data changes.
// Multiple notifiers can be registered. Callbacks run in separate goroutines
// to prevent blocking cache operations.
//
// This is typically used to trigger commitment re-analysis when usage or
// plan data changes. Thread-safe.
func (b *BaseCache) RegisterUpdateNotifier(fn UpdateNotifier) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	b.notifiers = append(b.notifiers, fn)
}

// NotifyUpdate invokes all registered notifiers in separate goroutines.
//
// IMPORTANT: call this AFTER releasing the main data lock. Notifiers may
// read from caches, so they need to acquire read locks.
func (b *BaseCache) NotifyUpdate() {
	b.notifyMu.RLock()
	defer b.notifyMu.RUnlock()

	for _, fn := range b.notifiers {
		// Notifiers must be thread-safe
		go fn()
	}
}

// MarkUpdated sets the last update timestamp to now.
//
// IMPORTANT: caller must hold the write lock.
func (b *BaseCache) MarkUpdated() {
	b.lastUpdate = time.Now()
}

// GetLastUpdate returns when the cache was last modified.
// Returns zero time if never updated. Thread-safe.
func (b *BaseCache) GetLastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// IsStale returns true if the cache hasn't been updated within maxAge,
// or has never been updated. Thread-safe.
func (b *BaseCache) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.lastUpdate.IsZero() {
		return true // Never updated
	}
	return time.Since(b.lastUpdate) > maxAge
}

// GetAge returns the duration since the last update.
// Returns 0 if never updated. Thread-safe.
func (b *BaseCache) GetAge() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.lastUpdate.IsZero() {
		return 0
	}
	return time.Since(b.lastUpdate)
}
