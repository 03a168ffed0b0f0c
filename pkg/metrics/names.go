/*
Copyright 2025 Covenant Contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

// This file exports metric name constants for external consumers (dashboards
// and alerting rules) that need to query Covenant metrics programmatically.
// Using these constants provides compile-time safety and refactoring support.
//
// For metric label names, see the exported label constants in labels.go.

// Controller health metrics.
const (
	// MetricControllerRunning indicates whether the advisor is running.
	// Value is always 1 while the process is active. If this metric
	// disappears from the metrics endpoint, the advisor has crashed.
	// Type: Gauge
	// Labels: none
	MetricControllerRunning = "covenant_controller_running"

	// MetricDataFreshnessSeconds measures the age of cached data in seconds
	// since the last successful update, refreshed every second by a
	// background goroutine. Alert on this for stale data (e.g. > 7200).
	// Type: Gauge
	// Labels: account_id, account_name, data_type
	MetricDataFreshnessSeconds = "covenant_data_freshness_seconds"

	// MetricDataLastSuccess indicates whether the last collection attempt
	// for a data type succeeded (1) or failed (0).
	// Type: Gauge
	// Labels: account_id, account_name, data_type
	MetricDataLastSuccess = "covenant_data_last_success"

	// MetricAnalysisDurationSeconds measures how long a full commitment
	// analysis pass takes.
	// Type: Histogram
	// Labels: none
	MetricAnalysisDurationSeconds = "covenant_analysis_duration_seconds"
)

// Recommendation metrics. These describe the advisor's answer: where the
// fleet should set its Savings Plan commitment.
const (
	// MetricRecommendedCoverage is the optimal coverage in on-demand-
	// equivalent $/hour, the point of maximum net savings.
	// Type: Gauge
	MetricRecommendedCoverage = "covenant_recommended_coverage_dollars"

	// MetricRecommendedCommitment is the optimal coverage expressed as the
	// discounted commitment actually paid, in $/hour.
	// Type: Gauge
	MetricRecommendedCommitment = "covenant_recommended_commitment_dollars"

	// MetricConservativeCoverage is the knee-point coverage in
	// on-demand-equivalent $/hour, a diminishing-returns purchase target
	// that captures most of the savings at lower risk.
	// Type: Gauge
	MetricConservativeCoverage = "covenant_conservative_coverage_dollars"

	// MetricMaxNetSavings is the net savings over the analysis window at
	// the recommended coverage, in dollars.
	// Type: Gauge
	MetricMaxNetSavings = "covenant_max_net_savings_dollars"

	// MetricBreakevenCoverage is the lowest sampled coverage where net
	// savings turn negative, in on-demand-equivalent $/hour. Set to -1
	// when no sampled coverage loses money.
	// Type: Gauge
	MetricBreakevenCoverage = "covenant_breakeven_coverage_dollars"

	// MetricUsagePercentile reports where the recommended coverage sits in
	// the usage distribution, as percent of peak usage.
	// Type: Gauge
	// Labels: percentile
	MetricUsagePercentile = "covenant_usage_percentile_of_peak_percent"
)

// Current position metrics. These describe where the fleet's existing
// commitment sits relative to the recommendation.
const (
	// MetricCurrentCoverage is the fleet's current aggregate coverage in
	// on-demand-equivalent $/hour, derived from active Savings Plans.
	// Type: Gauge
	MetricCurrentCoverage = "covenant_current_coverage_dollars"

	// MetricCurrentCommitment is the fleet's current aggregate hourly
	// commitment in $/hour.
	// Type: Gauge
	MetricCurrentCommitment = "covenant_current_commitment_dollars"

	// MetricCurrentNetSavings is the net savings over the analysis window
	// at the current coverage, in dollars.
	// Type: Gauge
	MetricCurrentNetSavings = "covenant_current_net_savings_dollars"

	// MetricEffectiveSavingsRate is the realized blended savings rate over
	// the analysis window, in percent. Negative when the commitment loses
	// money.
	// Type: Gauge
	MetricEffectiveSavingsRate = "covenant_effective_savings_rate_percent"

	// MetricSpilloverPercent is the share of total cost paid at on-demand
	// rates above the commitment, in percent.
	// Type: Gauge
	MetricSpilloverPercent = "covenant_spillover_percent"

	// MetricWastePercent is the share of total cost spent on unused
	// commitment, in percent.
	// Type: Gauge
	MetricWastePercent = "covenant_waste_percent"

	// MetricCoverageZone is a one-hot gauge over coverage zones: the zone
	// the current coverage falls in carries 1, all others 0.
	// Type: Gauge
	// Labels: zone
	MetricCoverageZone = "covenant_coverage_zone"
)
