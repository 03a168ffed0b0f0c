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
	"fmt"
	"sync"
	"time"
)

// MockClient is a mock implementation of the Client interface for testing.
// It provides configurable responses and tracks method calls.
type MockClient struct {
	mu sync.RWMutex

	// SavingsPlansClients maps AccountID to MockSavingsPlansClient
	SavingsPlansClients map[string]*MockSavingsPlansClient

	// CostExplorerClients maps AccountID to MockCostExplorerClient
	CostExplorerClients map[string]*MockCostExplorerClient

	// PricingClientInstance is the mock pricing client
	PricingClientInstance *MockPricingClient

	// AssumeRoleCalls tracks all AssumeRole attempts
	AssumeRoleCalls []AssumeRoleCall

	// Errors can be set to simulate AWS API errors
	SavingsPlansError error
	CostExplorerError error
}

// AssumeRoleCall records an AssumeRole operation for testing.
type AssumeRoleCall struct {
	AccountID     string
	AssumeRoleARN string
	SessionName   string
}

// NewMockClient creates a new MockClient with initialized maps.
func NewMockClient() *MockClient {
	return &MockClient{
		SavingsPlansClients:   make(map[string]*MockSavingsPlansClient),
		CostExplorerClients:   make(map[string]*MockCostExplorerClient),
		PricingClientInstance: NewMockPricingClient(),
		AssumeRoleCalls:       []AssumeRoleCall{},
	}
}

// SavingsPlans returns a mock SavingsPlansClient for the specified account.
func (m *MockClient) SavingsPlans(_ context.Context, accountConfig AccountConfig) (SavingsPlansClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SavingsPlansError != nil {
		return nil, m.SavingsPlansError
	}

	m.trackAssumeRole(accountConfig)

	client, exists := m.SavingsPlansClients[accountConfig.AccountID]
	if !exists {
		client = NewMockSavingsPlansClient()
		m.SavingsPlansClients[accountConfig.AccountID] = client
	}

	return client, nil
}

// CostExplorer returns a mock CostExplorerClient for the specified account.
func (m *MockClient) CostExplorer(_ context.Context, accountConfig AccountConfig) (CostExplorerClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CostExplorerError != nil {
		return nil, m.CostExplorerError
	}

	m.trackAssumeRole(accountConfig)

	client, exists := m.CostExplorerClients[accountConfig.AccountID]
	if !exists {
		client = NewMockCostExplorerClient()
		m.CostExplorerClients[accountConfig.AccountID] = client
	}

	return client, nil
}

// Pricing returns the mock PricingClient.
func (m *MockClient) Pricing(_ context.Context) PricingClient {
	return m.PricingClientInstance
}

// trackAssumeRole records an AssumeRole attempt when the account carries a
// role ARN. Callers must hold m.mu.
func (m *MockClient) trackAssumeRole(accountConfig AccountConfig) {
	if accountConfig.AssumeRoleARN == "" {
		return
	}
	m.AssumeRoleCalls = append(m.AssumeRoleCalls, AssumeRoleCall{
		AccountID:     accountConfig.AccountID,
		AssumeRoleARN: accountConfig.AssumeRoleARN,
		SessionName:   accountConfig.SessionName,
	})
}

// MockSavingsPlansClient is a mock implementation of SavingsPlansClient for testing.
type MockSavingsPlansClient struct {
	mu sync.RWMutex

	// SavingsPlans is the mock Savings Plans data
	SavingsPlans []SavingsPlan

	// Error injection for testing error paths
	DescribeSavingsPlansError error
	GetSavingsPlanByARNError  error

	// CallCounts tracks method call counts
	DescribeSavingsPlansCallCount int
	GetSavingsPlanByARNCallCount  int
}

// NewMockSavingsPlansClient creates a new MockSavingsPlansClient.
func NewMockSavingsPlansClient() *MockSavingsPlansClient {
	return &MockSavingsPlansClient{
		SavingsPlans: []SavingsPlan{},
	}
}

// DescribeSavingsPlans returns the mock Savings Plans data.
func (m *MockSavingsPlansClient) DescribeSavingsPlans(_ context.Context) ([]SavingsPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DescribeSavingsPlansCallCount++

	if m.DescribeSavingsPlansError != nil {
		return nil, m.DescribeSavingsPlansError
	}

	plans := make([]SavingsPlan, len(m.SavingsPlans))
	copy(plans, m.SavingsPlans)
	return plans, nil
}

// GetSavingsPlanByARN returns the mock Savings Plan with the given ARN,
// or nil if not found.
func (m *MockSavingsPlansClient) GetSavingsPlanByARN(_ context.Context, arn string) (*SavingsPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetSavingsPlanByARNCallCount++

	if m.GetSavingsPlanByARNError != nil {
		return nil, m.GetSavingsPlanByARNError
	}

	for _, sp := range m.SavingsPlans {
		if sp.SavingsPlanARN == arn {
			plan := sp
			return &plan, nil
		}
	}
	return nil, nil
}

// SetSavingsPlans replaces the mock Savings Plans data.
func (m *MockSavingsPlansClient) SetSavingsPlans(plans []SavingsPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SavingsPlans = plans
}

// MockCostExplorerClient is a mock implementation of CostExplorerClient for testing.
type MockCostExplorerClient struct {
	mu sync.RWMutex

	// UsagePoints is the mock hourly usage data. GetHourlyUsage returns the
	// points that fall inside the requested window.
	UsagePoints []UsagePoint

	// Error injection for testing error paths
	GetHourlyUsageError error

	// CallCounts tracks method call counts
	GetHourlyUsageCallCount int
}

// NewMockCostExplorerClient creates a new MockCostExplorerClient.
func NewMockCostExplorerClient() *MockCostExplorerClient {
	return &MockCostExplorerClient{
		UsagePoints: []UsagePoint{},
	}
}

// GetHourlyUsage returns the mock usage points within [start, end).
func (m *MockCostExplorerClient) GetHourlyUsage(_ context.Context, start, end time.Time) ([]UsagePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetHourlyUsageCallCount++

	if m.GetHourlyUsageError != nil {
		return nil, m.GetHourlyUsageError
	}

	var points []UsagePoint
	for _, p := range m.UsagePoints {
		if !p.Start.Before(start) && p.Start.Before(end) {
			points = append(points, p)
		}
	}
	return points, nil
}

// SetHourlyUsage replaces the mock usage data with one point per hour
// starting at start.
func (m *MockCostExplorerClient) SetHourlyUsage(start time.Time, amounts []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UsagePoints = make([]UsagePoint, 0, len(amounts))
	for i, amount := range amounts {
		m.UsagePoints = append(m.UsagePoints, UsagePoint{
			Start:  start.Add(time.Duration(i) * time.Hour),
			Amount: amount,
		})
	}
}

// MockPricingClient is a mock implementation of PricingClient for testing.
type MockPricingClient struct {
	mu sync.RWMutex

	// Rates maps "region:instanceType" to the mock rate
	Rates map[string]*OnDemandRate

	// Error injection for testing error paths
	GetOnDemandRateError error

	// CallCounts tracks method call counts
	GetOnDemandRateCallCount int
}

// NewMockPricingClient creates a new MockPricingClient.
func NewMockPricingClient() *MockPricingClient {
	return &MockPricingClient{
		Rates: make(map[string]*OnDemandRate),
	}
}

// GetOnDemandRate returns the mock rate for the region and instance type.
func (m *MockPricingClient) GetOnDemandRate(
	_ context.Context,
	region string,
	instanceType string,
) (*OnDemandRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetOnDemandRateCallCount++

	if m.GetOnDemandRateError != nil {
		return nil, m.GetOnDemandRateError
	}

	rate, ok := m.Rates[region+":"+instanceType]
	if !ok {
		return nil, fmt.Errorf("no mock rate for %s in %s", instanceType, region)
	}
	return rate, nil
}

// SetRate sets the mock rate for a region and instance type.
func (m *MockPricingClient) SetRate(region, instanceType string, pricePerHour float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Rates[region+":"+instanceType] = &OnDemandRate{
		Region:       region,
		InstanceType: instanceType,
		PricePerHour: pricePerHour,
	}
}
