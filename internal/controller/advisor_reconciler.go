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
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/nextdoor/covenant/internal/cache"
	"github.com/nextdoor/covenant/pkg/aws"
	"github.com/nextdoor/covenant/pkg/config"
	"github.com/nextdoor/covenant/pkg/engine"
	"github.com/nextdoor/covenant/pkg/metrics"
)

// Analysis is one complete commitment assessment: the merged usage window it
// was computed from, where the fleet's current commitment sits, and where the
// engine says it should sit.
type Analysis struct {
	// GeneratedAt is when the analysis ran.
	GeneratedAt time.Time

	// WindowHours is the length of the merged usage series analyzed.
	WindowHours int

	// DiscountPercent is the savings rate used, commitment-weighted across
	// active plans with the configured default as fallback.
	DiscountPercent float64

	// CurrentCommitment and CurrentCoverage describe the fleet's active
	// Savings Plans: what is paid per hour and the on-demand-equivalent
	// usage it covers.
	CurrentCommitment float64
	CurrentCoverage   float64

	// Report is the full cost breakdown at the current coverage.
	Report engine.CostReport

	// Zone classifies the current coverage against the optimal.
	Zone engine.ZoneAssessment

	// Optimal is the engine's maximum-net-savings recommendation.
	Optimal engine.OptimalResult

	// KneeCoverage is the diminishing-returns purchase target.
	KneeCoverage float64

	// Curve is the full savings curve for visualization.
	Curve engine.SavingsCurve
}

// AdvisorReconciler runs the commitment analysis. It is event-driven:
// analyses trigger automatically when the usage or plan caches update, with
// a debouncer coalescing rapid updates (both caches refresh on startup) into
// a single pass.
//
// The reconciler is stateless with respect to history: every pass recomputes
// the full analysis from the current cache contents, so the advisor can be
// restarted at any time without losing accuracy.
type AdvisorReconciler struct {
	// Config supplies the default savings rate and on-demand unit rate
	Config *config.Config

	// AWSClient resolves the cosmetic unit price from the Pricing API when
	// no static rate is configured. May be nil in tests.
	AWSClient aws.Client

	// UsageCache provides the merged hourly cost series
	UsageCache *cache.UsageCache

	// PlanCache provides active Savings Plans for the current position
	PlanCache *cache.PlanCache

	// Metrics for publishing the recommendation and current position
	Metrics *metrics.Metrics

	// Debouncer accumulates rapid cache updates and triggers re-analysis
	// after a period of quiet (default: 1 second)
	Debouncer *cache.Debouncer

	// Logger
	Log logr.Logger

	// Ready channels for waiting on data sources during initialization.
	// The advisor waits for both before its first analysis.
	UsageReadyChan chan struct{} // Wait for the first usage collection
	PlansReadyChan chan struct{} // Wait for the first plan collection

	// initialized blocks debouncer-triggered analyses until the initial
	// dependency wait has completed, preventing passes on partial data.
	initialized atomic.Bool

	// last holds the most recent analysis for debug inspection
	mu   sync.RWMutex
	last *Analysis
}

// Reconcile performs a single analysis pass: merge the cached usage, derive
// the current position from active plans, run the engine, and publish the
// results. Called by the debouncer whenever a cache updates.
func (r *AdvisorReconciler) Reconcile(ctx context.Context) error {
	// Block debouncer-triggered analyses during startup
	if !r.initialized.Load() {
		r.Log.V(1).Info("skipping analysis - data sources not ready yet")
		return nil
	}

	log := r.Log.WithValues("reconciler", "advisor")
	log.Info("starting commitment analysis")

	startTime := time.Now()
	now := time.Now()

	_, series := r.UsageCache.MergedSeries()
	if len(series) == 0 {
		log.Info("no usage data available, skipping analysis")
		return nil
	}

	// Current position from active plans. Plans without a discount figure
	// fall back to the configured rate, as does an empty fleet.
	discount := r.PlanCache.WeightedDiscountPercent(now, r.Config.GetSavingsPercentage())
	commitment := r.PlanCache.TotalCommitment(now)
	coverage := engine.CoverageFromCommitment(commitment, discount)

	report := engine.CalculateCosts(series, coverage, discount, r.resolveOnDemandRate(ctx, log))
	zone := engine.DetectCoverageZone(coverage, series, discount)
	curve := engine.GenerateSavingsCurve(series, discount)

	minCost := 0.0
	if curve.MinCostIndex >= 0 && curve.MinCostIndex < len(curve.Points) {
		minCost = curve.Points[curve.MinCostIndex].Coverage
	}
	knee := engine.CalculateKneePoint(series, discount, minCost, report.Optimal.CoverageUnits)

	analysis := &Analysis{
		GeneratedAt:       now,
		WindowHours:       len(series),
		DiscountPercent:   discount,
		CurrentCommitment: commitment,
		CurrentCoverage:   coverage,
		Report:            report,
		Zone:              zone,
		Optimal:           report.Optimal,
		KneeCoverage:      knee,
		Curve:             curve,
	}

	r.mu.Lock()
	r.last = analysis
	r.mu.Unlock()

	r.Metrics.RecordRecommendation(report.Optimal, knee, curve)
	r.Metrics.RecordCurrentPosition(coverage, commitment, report, zone)
	r.Metrics.AnalysisDuration.Observe(time.Since(startTime).Seconds())

	log.Info("commitment analysis complete",
		"window_hours", analysis.WindowHours,
		"discount_percent", discount,
		"current_coverage", coverage,
		"current_commitment", commitment,
		"zone", zone.Zone,
		"current_net_savings", zone.NetSavings,
		"current_savings_percent", zone.SavingsPercent,
		"recommended_coverage", report.Optimal.CoverageUnits,
		"recommended_commitment", report.Optimal.CommitmentUnits,
		"knee_coverage", knee,
		"max_net_savings", report.Optimal.MaxNetSavings,
		"spillover_percent", report.SpilloverPercentage,
		"waste_percent", report.WastePercentage,
		"duration_seconds", time.Since(startTime).Seconds())

	return nil
}

// resolveOnDemandRate returns the unit price for the cosmetic usage-unit
// quantities: the configured static rate when set, otherwise a Pricing API
// lookup for the configured reference instance type. Returns 0 (units
// disabled) when neither is available; the lookup is cached by the client,
// so this is cheap on every pass after the first.
func (r *AdvisorReconciler) resolveOnDemandRate(ctx context.Context, log logr.Logger) float64 {
	if r.Config.Advisor.OnDemandRate > 0 {
		return r.Config.Advisor.OnDemandRate
	}

	instanceType := r.Config.Advisor.ReferenceInstanceType
	if instanceType == "" || r.Config.DefaultRegion == "" || r.AWSClient == nil {
		return 0
	}

	rate, err := r.AWSClient.Pricing(ctx).GetOnDemandRate(ctx, r.Config.DefaultRegion, instanceType)
	if err != nil {
		log.V(1).Info("could not resolve on-demand unit rate, usage units disabled",
			"instance_type", instanceType,
			"region", r.Config.DefaultRegion,
			"error", err.Error())
		return 0
	}
	return rate.PricePerHour
}

// LastAnalysis returns the most recent analysis, or nil if none has run yet.
func (r *AdvisorReconciler) LastAnalysis() *Analysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run runs the reconciler as a goroutine with event-driven reconciliation.
//
// Runs an initial analysis on startup (after waiting for both data sources),
// then waits for the debouncer to trigger subsequent analyses when cache
// data updates.
func (r *AdvisorReconciler) Run(ctx context.Context) error {
	log := r.Log
	log.Info("starting advisor reconciler")

	r.waitForDependencies()

	// Allow debouncer-triggered analyses from here on
	r.initialized.Store(true)

	log.Info("running initial analysis")
	if err := r.Reconcile(ctx); err != nil {
		log.Error(err, "initial analysis failed")
		// Don't exit - future cache updates will trigger re-analysis
	}

	log.Info("advisor ready, waiting for cache updates to trigger re-analysis")

	<-ctx.Done()
	log.Info("shutting down advisor reconciler")

	// Stop the debouncer to prevent callbacks during shutdown
	if r.Debouncer != nil {
		r.Debouncer.Stop()
	}

	return ctx.Err()
}

// waitForDependencies blocks until both data sources have completed their
// first collection cycle, so the first analysis doesn't run on partial data.
func (r *AdvisorReconciler) waitForDependencies() {
	log := r.Log.WithName("init")

	if r.UsageReadyChan != nil {
		log.Info("waiting for usage cache to be ready")
		<-r.UsageReadyChan
		log.Info("usage cache ready")
	}

	if r.PlansReadyChan != nil {
		log.Info("waiting for plan cache to be ready")
		<-r.PlansReadyChan
		log.Info("plan cache ready")
	}

	log.Info("all data sources ready")
}
