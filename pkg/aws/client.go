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

import (
	"context"
	"time"
)

// Client is the main interface for interacting with AWS services.
// It provides access to the Savings Plans, Cost Explorer, and Pricing APIs
// with built-in support for cross-account AssumeRole operations.
type Client interface {
	// SavingsPlans returns a SavingsPlansClient for the specified account.
	// If accountConfig.AssumeRoleARN is set, it will assume that role.
	// Otherwise, it uses the default credential chain.
	SavingsPlans(ctx context.Context, accountConfig AccountConfig) (SavingsPlansClient, error)

	// CostExplorer returns a CostExplorerClient for the specified account.
	CostExplorer(ctx context.Context, accountConfig AccountConfig) (CostExplorerClient, error)

	// Pricing returns a PricingClient (does not require account-specific credentials).
	Pricing(ctx context.Context) PricingClient
}

// SavingsPlansClient provides access to AWS Savings Plans API operations.
type SavingsPlansClient interface {
	// DescribeSavingsPlans returns all Savings Plans for the account,
	// including retired ones. This API is not region-specific (it operates
	// on the global Savings Plans data).
	DescribeSavingsPlans(ctx context.Context) ([]SavingsPlan, error)

	// GetSavingsPlanByARN returns a specific Savings Plan by ARN.
	// Returns nil if the Savings Plan is not found.
	GetSavingsPlanByARN(ctx context.Context, arn string) (*SavingsPlan, error)
}

// CostExplorerClient provides access to AWS Cost Explorer API operations.
type CostExplorerClient interface {
	// GetHourlyUsage returns hourly unblended cost for the account between
	// start (inclusive) and end (exclusive), ordered by hour. Cost Explorer
	// limits hourly granularity to the trailing 14 days.
	GetHourlyUsage(ctx context.Context, start, end time.Time) ([]UsagePoint, error)
}

// PricingClient provides access to AWS Pricing API operations.
// This client does not require account-specific credentials as pricing
// information is publicly available.
type PricingClient interface {
	// GetOnDemandRate returns the Linux on-demand price for an instance type
	// in a region. Used to express costs as usage-unit quantities.
	GetOnDemandRate(ctx context.Context, region string, instanceType string) (*OnDemandRate, error)
}

// ClientConfig configures the AWS client creation.
type ClientConfig struct {
	// DefaultRegion is the default AWS region for API calls
	DefaultRegion string

	// MaxRetries is the maximum number of retries for AWS API calls
	// Default: 3
	MaxRetries int

	// HTTPTimeout is the timeout for HTTP requests to AWS APIs
	// Default: 30 seconds
	HTTPTimeout time.Duration
}

// NewClient creates a new AWS client with the specified configuration.
// The client handles credential management, AssumeRole operations, and
// retries automatically.
//
// For production use, this creates a RealClient that connects to actual AWS
// APIs. For testing with LocalStack, use NewClientWithEndpoint instead.
func NewClient(config ClientConfig) (Client, error) {
	return NewClientWithEndpoint(config, "")
}

// NewClientWithEndpoint creates a new AWS client with a custom endpoint URL.
// This is primarily used for testing with LocalStack.
//
// For production use, pass an empty endpointURL or use NewClient instead.
// For LocalStack testing, pass "http://localhost:4566" as endpointURL.
func NewClientWithEndpoint(config ClientConfig, endpointURL string) (Client, error) {
	return NewRealClient(context.Background(), config, endpointURL)
}
