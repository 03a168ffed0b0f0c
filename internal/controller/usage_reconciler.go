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

// UsageReconciler collects hourly cost series from Cost Explorer.
// It refreshes each configured account on a timer (default: hourly, matching
// Cost Explorer's data latency) and keeps the usage cache current so the
// advisor always analyzes the freshest window available.
type UsageReconciler struct {
	// AWS client for making API calls
	AWSClient aws.Client

	// Configuration with AWS account details and the lookback window
	Config *config.Config

	// Cache for storing per-account hourly series
	Cache *cache.UsageCache

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
func (r *UsageReconciler) Reconcile(ctx context.Context) error {
	log := r.Log.WithValues("reconciler", "usage")
	log.Info("starting usage collection cycle")

	startTime := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, len(r.Config.AWSAccounts))

	for _, account := range r.Config.AWSAccounts {
		wg.Add(1)
		go func(acc config.AWSAccount) {
			defer wg.Done()
			if err := r.reconcileAccount(ctx, acc); err != nil {
				log.Error(err, "failed to collect usage",
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
		log.Info("usage collection completed with errors",
			"error_count", errorCount,
			"duration_seconds", time.Since(startTime).Seconds())
	} else {
		log.Info("usage collection completed successfully",
			"duration_seconds", time.Since(startTime).Seconds())
	}

	// Signal readiness after the first full cycle, even a degraded one.
	// Dependent reconcilers handle empty data; blocking them forever on a
	// broken account would be worse.
	r.readyOnce.Do(func() {
		if r.ReadyChan != nil {
			close(r.ReadyChan)
		}
	})

	if errorCount > 0 {
		return fmt.Errorf("usage collection failed for %d account(s)", errorCount)
	}
	return nil
}

// reconcileAccount collects the hourly series for a single account.
// If test data is configured for the account, it is used instead of
// calling Cost Explorer.
func (r *UsageReconciler) reconcileAccount(ctx context.Context, account config.AWSAccount) error {
	log := r.Log.WithValues(
		"reconciler", "usage",
		"account_id", account.AccountID,
		"account_name", account.Name,
	)

	startTime := time.Now()
	var points []aws.UsagePoint

	if r.Config.TestData != nil && r.Config.TestData.HourlyUsage != nil {
		amounts, hasTestData := r.Config.TestData.HourlyUsage[account.AccountID]
		if hasTestData {
			log.Info("using test data for hourly usage", "hours", len(amounts))
			points = syntheticUsagePoints(amounts, time.Now())
		} else {
			log.Info("no test data configured for this account, using empty series")
			points = []aws.UsagePoint{}
		}
	} else {
		accountConfig := aws.AccountConfig{
			AccountID:     account.AccountID,
			AssumeRoleARN: account.AssumeRoleARN,
			Region:        account.Region,
		}

		ceClient, err := r.AWSClient.CostExplorer(ctx, accountConfig)
		if err != nil {
			r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeUsage, false)
			return fmt.Errorf("failed to create Cost Explorer client: %w", err)
		}

		// Cost Explorer serves hourly granularity for the trailing 14 days
		// only; the configured lookback is clamped by config validation.
		end := time.Now().UTC().Truncate(time.Hour)
		start := end.Add(-time.Duration(r.Config.GetLookbackDays()) * 24 * time.Hour)

		points, err = ceClient.GetHourlyUsage(ctx, start, end)
		if err != nil {
			r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeUsage, false)
			log.Error(err, "failed to get hourly usage")
			return fmt.Errorf("failed to get hourly usage: %w", err)
		}
	}

	r.Cache.UpdateUsage(account.AccountID, points)
	r.Metrics.RecordCollection(account.AccountID, account.Name, metrics.DataTypeUsage, true)

	log.Info("updated hourly usage",
		"hours", len(points),
		"duration_seconds", time.Since(startTime).Seconds())

	return nil
}

// Run runs the reconciler as a goroutine with timer-based reconciliation.
//
// Uses a simple time.Ticker for periodic collection. Continues running even
// if individual cycles fail, and stops gracefully when the context is
// cancelled.
func (r *UsageReconciler) Run(ctx context.Context) error {
	log := r.Log
	log.Info("starting usage reconciler")

	log.Info("running initial collection")
	if err := r.Reconcile(ctx); err != nil {
		log.Error(err, "initial collection failed")
		// Don't exit - continue with periodic collection
	}

	interval := r.Config.GetUsageInterval()
	log.Info("configured collection interval", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down usage reconciler")
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

// syntheticUsagePoints builds an hour-aligned series from raw amounts,
// ending at the hour before 'now'. Used for test data configurations.
func syntheticUsagePoints(amounts []float64, now time.Time) []aws.UsagePoint {
	end := now.UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(len(amounts)) * time.Hour)

	points := make([]aws.UsagePoint, len(amounts))
	for i, amount := range amounts {
		points[i] = aws.UsagePoint{
			Start:  start.Add(time.Duration(i) * time.Hour),
			Amount: amount,
		}
	}
	return points
}
