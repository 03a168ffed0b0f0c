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

// PlanCache stores Savings Plans data with thread-safe access.
// Plans are indexed by account ID and updated atomically per account.
// If a refresh fails, old data is retained for graceful degradation.
type PlanCache struct {
	BaseCache // Provides: Lock/RLock, RegisterUpdateNotifier, NotifyUpdate, MarkUpdated, etc.

	// Savings Plans indexed by account ID. Plans are organization-wide
	// (not regional).
	plans map[string][]aws.SavingsPlan

	// Freshness tracking per account
	freshness map[string]time.Time
}

// NewPlanCache creates a new empty plan cache.
func NewPlanCache() *PlanCache {
	return &PlanCache{
		BaseCache: NewBaseCache(),
		plans:     make(map[string][]aws.SavingsPlan),
		freshness: make(map[string]time.Time),
	}
}

// UpdatePlans atomically replaces all Savings Plans for an account.
// This should be called after successfully querying the Savings Plans API.
func (c *PlanCache) UpdatePlans(accountID string, plans []aws.SavingsPlan) {
	c.Lock()
	c.plans[accountID] = plans
	c.freshness[accountID] = time.Now()
	c.MarkUpdated()
	c.Unlock()

	// Notify subscribers after releasing the write lock
	c.NotifyUpdate()
}

// GetPlans returns all Savings Plans for a specific account.
// Returns an empty slice if no data exists (never returns nil).
func (c *PlanCache) GetPlans(accountID string) []aws.SavingsPlan {
	c.RLock()
	defer c.RUnlock()

	plans, ok := c.plans[accountID]
	if !ok {
		return []aws.SavingsPlan{}
	}
	result := make([]aws.SavingsPlan, len(plans))
	copy(result, plans)
	return result
}

// GetAccountFreshness returns when an account's plans were last refreshed.
// Returns zero time if the account has never been refreshed.
func (c *PlanCache) GetAccountFreshness(accountID string) time.Time {
	c.RLock()
	defer c.RUnlock()
	return c.freshness[accountID]
}

// ActivePlans returns all plans across accounts that are in force at the
// given time.
func (c *PlanCache) ActivePlans(now time.Time) []aws.SavingsPlan {
	c.RLock()
	defer c.RUnlock()

	var active []aws.SavingsPlan
	for _, plans := range c.plans {
		for _, sp := range plans {
			if sp.IsActive(now) {
				active = append(active, sp)
			}
		}
	}
	return active
}

// TotalCommitment returns the fleet's aggregate hourly commitment in $/hour,
// summed over all plans active at the given time.
func (c *PlanCache) TotalCommitment(now time.Time) float64 {
	var total float64
	for _, sp := range c.ActivePlans(now) {
		total += sp.Commitment
	}
	return total
}

// WeightedDiscountPercent returns the commitment-weighted average discount
// across active plans. Plans that don't carry a discount figure use
// fallbackPercent. Returns fallbackPercent when no plans are active, so the
// caller always gets a usable rate.
func (c *PlanCache) WeightedDiscountPercent(now time.Time, fallbackPercent float64) float64 {
	var weighted, total float64
	for _, sp := range c.ActivePlans(now) {
		discount := sp.DiscountPercent
		if discount == 0 {
			discount = fallbackPercent
		}
		weighted += discount * sp.Commitment
		total += sp.Commitment
	}
	if total == 0 {
		return fallbackPercent
	}
	return weighted / total
}
