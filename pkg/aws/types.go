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

package aws

import "time"

// AccountConfig identifies an AWS account and how to obtain credentials
// for it.
type AccountConfig struct {
	// AccountID is the 12-digit AWS account ID.
	AccountID string

	// Region is the AWS region for API calls against this account.
	Region string

	// AssumeRoleARN is the IAM role to assume for this account. If empty,
	// the default credential chain is used directly.
	AssumeRoleARN string

	// SessionName is the STS session name for AssumeRole operations.
	// Defaults to "covenant-<accountID>" when empty.
	SessionName string
}

// SavingsPlan represents an AWS Savings Plan relevant to the advisor:
// the fixed hourly commitment and the discount it was purchased at.
type SavingsPlan struct {
	// SavingsPlanARN uniquely identifies the Savings Plan.
	SavingsPlanARN string

	// SavingsPlanID is the short identifier used by rate APIs.
	SavingsPlanID string

	// SavingsPlanType is "Compute" or "EC2Instance".
	SavingsPlanType string

	// State is the plan lifecycle state ("active", "payment-pending",
	// "retired", ...). Only active plans contribute to current coverage.
	State string

	// Commitment is the fixed hourly commitment in $/hour. This is the
	// discounted amount actually paid, not the on-demand-equivalent usage
	// it covers.
	Commitment float64

	// DiscountPercent is the purchase-time discount in percent (0-100).
	// The Savings Plans API does not return a single realized discount
	// figure, so this is populated from offering metadata or test data when
	// available and left 0 otherwise; consumers fall back to a configured
	// default when it is 0.
	DiscountPercent float64

	// AccountID is the owning account.
	AccountID string

	// Start and End bound the plan's term.
	Start time.Time
	End   time.Time
}

// PlanStateActive is the Savings Plans API state for in-force plans.
const PlanStateActive = "active"

// IsActive reports whether the plan currently contributes coverage.
func (sp SavingsPlan) IsActive(now time.Time) bool {
	if sp.State != PlanStateActive {
		return false
	}
	if !sp.Start.IsZero() && now.Before(sp.Start) {
		return false
	}
	if !sp.End.IsZero() && now.After(sp.End) {
		return false
	}
	return true
}

// UsagePoint is one hour of realized on-demand cost from Cost Explorer.
type UsagePoint struct {
	// Start is the beginning of the hour in UTC.
	Start time.Time

	// Amount is the unblended cost for the hour in dollars.
	Amount float64
}

// OnDemandRate is a unit price from the Pricing API, used only for
// display-oriented usage-unit quantities.
type OnDemandRate struct {
	Region       string
	InstanceType string

	// PricePerHour is the on-demand price in $/hour.
	PricePerHour float64
}
