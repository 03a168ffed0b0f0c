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

package cache

import (
	"time"

	"github.com/nextdoor/covenant/pkg/aws"
)

// UsageCache stores per-account hourly cost series with thread-safe access.
// Data is updated atomically per account on each refresh cycle. If a refresh
// fails, the old series is retained for graceful degradation.
//
// The advisor analyzes the fleet as a whole, so the cache can also merge all
// accounts into a single hour-aligned series (Savings Plans apply at the
// consolidated-billing level, not per account).
type UsageCache struct {
	BaseCache // Provides: Lock/RLock, RegisterUpdateNotifier, NotifyUpdate, MarkUpdated, etc.

	// Hourly cost points indexed by account ID
	usage map[string][]aws.UsagePoint

	// Freshness tracking per account, separate from BaseCache's global
	// lastUpdate
	freshness map[string]time.Time
}

// NewUsageCache creates a new empty usage cache.
func NewUsageCache() *UsageCache {
	return &UsageCache{
		BaseCache: NewBaseCache(),
		usage:     make(map[string][]aws.UsagePoint),
		freshness: make(map[string]time.Time),
	}
}

// UpdateUsage atomically replaces the hourly series for an account.
// This should be called after successfully querying Cost Explorer.
func (c *UsageCache) UpdateUsage(accountID string, points []aws.UsagePoint) {
	c.Lock()
	c.usage[accountID] = points
	c.freshness[accountID] = time.Now()
	c.MarkUpdated()
	c.Unlock()

	// Notify subscribers after releasing the write lock
	c.NotifyUpdate()
}

// GetUsage returns the hourly series for a specific account.
// Returns an empty slice if no data exists (never returns nil).
func (c *UsageCache) GetUsage(accountID string) []aws.UsagePoint {
	c.RLock()
	defer c.RUnlock()

	points, ok := c.usage[accountID]
	if !ok {
		return []aws.UsagePoint{}
	}
	result := make([]aws.UsagePoint, len(points))
	copy(result, points)
	return result
}

// GetAccountIDs returns the IDs of all accounts with cached usage.
func (c *UsageCache) GetAccountIDs() []string {
	c.RLock()
	defer c.RUnlock()

	ids := make([]string, 0, len(c.usage))
	for id := range c.usage {
		ids = append(ids, id)
	}
	return ids
}

// GetAccountFreshness returns when an account's series was last refreshed.
// Returns zero time if the account has never been refreshed.
func (c *UsageCache) GetAccountFreshness(accountID string) time.Time {
	c.RLock()
	defer c.RUnlock()
	return c.freshness[accountID]
}

// MergedSeries merges all accounts into a single hour-aligned cost series.
// Points are summed per hour across accounts, ordered chronologically, and
// hours with no data from any account are zero-filled so the series has no
// gaps. Returns the start hour of the series and the per-hour costs.
//
// Returns a zero time and empty series when the cache is empty.
func (c *UsageCache) MergedSeries() (time.Time, []float64) {
	c.RLock()
	defer c.RUnlock()

	perHour := make(map[time.Time]float64)
	var first, last time.Time
	for _, points := range c.usage {
		for _, p := range points {
			hour := p.Start.UTC().Truncate(time.Hour)
			perHour[hour] += p.Amount
			if first.IsZero() || hour.Before(first) {
				first = hour
			}
			if last.IsZero() || hour.After(last) {
				last = hour
			}
		}
	}

	if len(perHour) == 0 {
		return time.Time{}, []float64{}
	}

	hours := int(last.Sub(first)/time.Hour) + 1
	series := make([]float64, hours)
	for i := range series {
		series[i] = perHour[first.Add(time.Duration(i)*time.Hour)]
	}
	return first, series
}
