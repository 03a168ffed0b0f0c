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
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/nextdoor/covenant/internal/cache"
	"github.com/nextdoor/covenant/pkg/aws"
	"github.com/nextdoor/covenant/pkg/config"
	"github.com/nextdoor/covenant/pkg/metrics"
)

// PlanReconciler collects Savings Plans inventory for all configured
// accounts. It refreshes on a timer (default: hourly) to keep the plan cache
// current; plan inventory changes rarely, so the interval mostly bounds how
// long a new purchase takes to show up in the analysis.
type PlanReconciler struct {
	// AWS client for making API calls
	AWSClient aws.Client

	// Configuration with AWS account details
	Config *config.Config

	// Cache for storing per-account Savings Plans
	Cache *cache.PlanCache

	// Metrics for observability
	Metrics *metrics.Metrics

	// Logger
	Log logr.Logger

	// ReadyChan is an optional channel closed after the first reconciliation
	// cycle completes, so dependent reconcilers can wait for initial data.
	ReadyChan chan struct{}

	// readyOnce ensures ReadyChan is closed only once
	readyOnce sync.Once
}

// Reconcile performs a single collection cycle across all configured
// accounts. Accounts are queried in parallel; a failure for one account
// leaves its previous data in the cache and does not block the others.
func (r *PlanReconciler) Reconcile(ctx context.Context) error {
	log := r.Log.WithValues("reconciler", "plans")
	log.Info("starting plan collection cycle")

	startTime := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, len(r.Config.AWSAccounts))

	for _, account := range r.Config.AWSAccounts {
		wg.Add(1)
		go func(acc config.AWSAccount) {
			defer wg.Done()
			if err := r.reconcileAccount(ctx, acc); err != nil {
				log.Error(err, "failed to collect savings plans",
					"account_id", acc.AccountID,
					"account_name", acc.Name)
				errs <- err
			}
		}(account)
	}

	wg.Wait()
	close(errs)

	errorCount := len(errs)
	if errorCount > 0 {
		log.Info("plan collection completed with errors",
			"error_count", errorCount,
			"duration_seconds", time.Since(startTime).Seconds())
	} else {
		log.Info("plan collection completed successfully",
			"duration_seconds", time.Since(startTime).Seconds())
	}

	r.readyOnce.Do(func() {
		if r.ReadyChan != nil {
			close(r.ReadyChan)
		}
	})

	if errorCount > 0 {
		return fmt.Errorf("plan collection failed for %d account(s)", errorCount)
	}
	return nil
}

// reconcileAccount collects Savings Plans for a single account
// (organization-wide, not regional). If test data is configured for the
// account, it is used instead of calling the Savings Plans API.
func (r *PlanReconciler) reconcileAccount(ctx context.Context, account config.AWSAccount) error {
	log := r.Log.WithValues(
		"reconciler", "plans",
		"account_id", account.AccountID,
		"account_name", account.Name,
	)

	startTime := time.Now()
	var plans []aws.SavingsPlan

	if r.Config.TestData != nil && r.Config.TestData.SavingsPlans != nil {
		testPlans, hasTestData := r.Config.TestData.SavingsPlans[account.AccountID]
		if hasTestData {
			log.Info("using test data for savings plans", "count", len(testPlans))
			plans = convertTestSavingsPlans(testPlans, account.AccountID)
		} else {
			log.Info("no test data configured for this account, using empty list")
			plans = []aws.SavingsPlan{}
		}
	} else {
		accountConfig := aws.AccountConfig{
			AccountID:     account.AccountID,
			AssumeRoleARN: account.AssumeRoleARN,
			Region:        account.Region,
		}

		spClient, err := r.AWSClient.SavingsPlans(ctx, accountConfig)
		if err != nil {
			r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeSavingsPlans, false)
			return fmt.Errorf("failed to create Savings Plans client: %w", err)
		}

		plans, err = spClient.DescribeSavingsPlans(ctx)
		if err != nil {
			r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeSavingsPlans, false)
			log.Error(err, "failed to describe savings plans")
			return fmt.Errorf("failed to describe savings plans: %w", err)
		}
	}

	r.Cache.UpdatePlans(account.AccountID, plans)
	r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeSavingsPlans, true)

	log.Info("updated savings plans",
		"count", len(plans),
		"duration_seconds", time.Since(startTime).Seconds())

	// Log details about each plan for observability
	for _, sp := range plans {
		log.V(1).Info("savings plan details",
			"sp_arn", sp.SavingsPlanARN,
			"sp_type", sp.SavingsPlanType,
			"commitment", sp.Commitment,
			"discount_percent", sp.DiscountPercent,
			"state", sp.State)
	}

	return nil
}

// Run runs the reconciler as a goroutine with timer-based reconciliation.
// Continues running even if individual cycles fail, and stops gracefully
// when the context is cancelled.
func (r *PlanReconciler) Run(ctx context.Context) error {
	log := r.Log
	log.Info("starting plan reconciler")

	log.Info("running initial collection")
	if err := r.Reconcile(ctx); err != nil {
		log.Error(err, "initial collection failed")
		// Don't exit - continue with periodic collection
	}

	interval := r.Config.GetPlansInterval()
	log.Info("configured collection interval", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down plan reconciler")
			return ctx.Err()
		case <-ticker.C:
			log.Info("running scheduled collection")
			if err := r.Reconcile(ctx); err != nil {
				log.Error(err, "scheduled collection failed")
				// Don't exit - continue with next cycle
			}
		}
	}
}

// convertTestSavingsPlans converts test configuration plans to
// aws.SavingsPlan format.
func convertTestSavingsPlans(testPlans []config.TestSavingsPlan, accountID string) []aws.SavingsPlan {
	result := make([]aws.SavingsPlan, 0, len(testPlans))

	for _, tp := range testPlans {
		start, _ := time.Parse(time.RFC3339, tp.Start)
		end, _ := time.Parse(time.RFC3339, tp.End)

		result = append(result, aws.SavingsPlan{
			SavingsPlanARN:  tp.SavingsPlanARN,
			SavingsPlanType: tp.SavingsPlanType,
			State:           tp.State,
			Commitment:      tp.Commitment,
			DiscountPercent: tp.DiscountPercent,
			Start:           start,
			End:             end,
			AccountID:       accountID,
		})
	}

	return result
}
