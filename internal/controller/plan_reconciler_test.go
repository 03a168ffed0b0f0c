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

package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdoor/covenant/internal/cache"
	"github.com/nextdoor/covenant/pkg/aws"
	"github.com/nextdoor/covenant/pkg/config"
	"github.com/nextdoor/covenant/pkg/metrics"
)

// TestPlanReconciler_Reconcile_Success tests a successful collection cycle
// against the mock Savings Plans client.
func TestPlanReconciler_Reconcile_Success(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	testPlans := []aws.SavingsPlan{
		{
			SavingsPlanARN:  "arn:aws:savingsplans::123456789012:savingsplan/sp-1",
			SavingsPlanID:   "sp-1",
			SavingsPlanType: "Compute",
			State:           aws.PlanStateActive,
			Commitment:      5.0,
			AccountID:       "123456789012",
			Start:           time.Now().Add(-30 * 24 * time.Hour),
			End:             time.Now().Add(335 * 24 * time.Hour),
		},
	}

	mockClient := aws.NewMockClient()
	spClient, err := mockClient.SavingsPlans(ctx, aws.AccountConfig{
		AccountID:     "123456789012",
		AssumeRoleARN: "arn:aws:iam::123456789012:role/test",
		Region:        "us-west-2",
	})
	require.NoError(t, err)
	spClient.(*aws.MockSavingsPlansClient).SetSavingsPlans(testPlans)

	planCache := cache.NewPlanCache()
	m := newControllerTestMetrics(t)

	reconciler := &PlanReconciler{
		AWSClient: mockClient,
		Config:    cfg,
		Cache:     planCache,
		Metrics:   m,
		Log:       logr.Discard(),
	}

	err = reconciler.Reconcile(ctx)
	require.NoError(t, err)

	plans := planCache.GetPlans("123456789012")
	require.Len(t, plans, 1)
	assert.Equal(t, "sp-1", plans[0].SavingsPlanID)
	assert.Equal(t, 5.0, plans[0].Commitment)

	success := testutil.ToFloat64(m.DataLastSuccess.WithLabelValues(
		"123456789012", "test-account", metrics.DataTypeSavingsPlans))
	assert.Equal(t, 1.0, success)
}

// TestPlanReconciler_Reconcile_TestData tests that configured test plans are
// converted and cached without calling the Savings Plans API.
func TestPlanReconciler_Reconcile_TestData(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	cfg.TestData = &config.TestData{
		SavingsPlans: map[string][]config.TestSavingsPlan{
			"123456789012": {
				{
					SavingsPlanARN:  "arn:aws:savingsplans::123456789012:savingsplan/sp-test",
					SavingsPlanType: "Compute",
					State:           "active",
					Commitment:      4.25,
					DiscountPercent: 28.0,
					Start:           "2025-01-01T00:00:00Z",
					End:             "2026-01-01T00:00:00Z",
				},
			},
		},
	}

	mockClient := aws.NewMockClient()
	planCache := cache.NewPlanCache()
	m := newControllerTestMetrics(t)

	reconciler := &PlanReconciler{
		AWSClient: mockClient,
		Config:    cfg,
		Cache:     planCache,
		Metrics:   m,
		Log:       logr.Discard(),
	}

	err := reconciler.Reconcile(ctx)
	require.NoError(t, err)

	plans := planCache.GetPlans("123456789012")
	require.Len(t, plans, 1)
	assert.Equal(t, 4.25, plans[0].Commitment)
	assert.Equal(t, 28.0, plans[0].DiscountPercent)
	assert.Equal(t, "123456789012", plans[0].AccountID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), plans[0].Start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), plans[0].End)

	// No AWS calls should have been made
	assert.Empty(t, mockClient.AssumeRoleCalls)
}

// TestPlanReconciler_Reconcile_Error tests that a collection failure is
// reported and recorded, but still signals readiness.
func TestPlanReconciler_Reconcile_Error(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()

	mockClient := aws.NewMockClient()
	spClient, err := mockClient.SavingsPlans(ctx, aws.AccountConfig{
		AccountID:     "123456789012",
		AssumeRoleARN: "arn:aws:iam::123456789012:role/test",
		Region:        "us-west-2",
	})
	require.NoError(t, err)
	spClient.(*aws.MockSavingsPlansClient).DescribeSavingsPlansError = errors.New("throttled")

	planCache := cache.NewPlanCache()
	m := newControllerTestMetrics(t)
	readyChan := make(chan struct{})

	reconciler := &PlanReconciler{
		AWSClient: mockClient,
		Config:    cfg,
		Cache:     planCache,
		Metrics:   m,
		Log:       logr.Discard(),
		ReadyChan: readyChan,
	}

	err = reconciler.Reconcile(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan collection failed for 1 account(s)")

	select {
	case <-readyChan:
	default:
		t.Fatal("expected ReadyChan to be closed after first cycle")
	}

	failure := testutil.ToFloat64(m.DataLastSuccess.WithLabelValues(
		"123456789012", "test-account", metrics.DataTypeSavingsPlans))
	assert.Equal(t, 0.0, failure)
}

// TestConvertTestSavingsPlans_BadTimestamp tests that unparseable timestamps
// yield zero times rather than dropping the plan.
func TestConvertTestSavingsPlans_BadTimestamp(t *testing.T) {
	plans := convertTestSavingsPlans([]config.TestSavingsPlan{
		{
			SavingsPlanARN: "arn:aws:savingsplans::123456789012:savingsplan/sp-bad",
			State:          "active",
			Commitment:     1.0,
			Start:          "not-a-timestamp",
			End:            "",
		},
	}, "123456789012")

	require.Len(t, plans, 1)
	assert.True(t, plans[0].Start.IsZero())
	assert.True(t, plans[0].End.IsZero())
}
