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

// Package metrics provides Prometheus metrics for the Covenant advisor.
// It exposes controller health, data freshness, and the advisor's
// commitment recommendation so dashboards and alerts can track both the
// answer and how stale the inputs behind it are.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nextdoor/covenant/pkg/engine"
)

// Metrics holds all Prometheus metrics for the Covenant advisor.
type Metrics struct {
	// lastUpdateTimes tracks when each data type was last updated.
	// Key format: "account_id:account_name:data_type".
	// A background goroutine derives DataFreshness ages from these.
	lastUpdateTimes map[string]time.Time
	lastUpdateMu    sync.RWMutex

	// stopCh signals the background goroutine to stop on shutdown
	stopCh chan struct{}

	// ControllerRunning indicates whether the advisor is running.
	// This is a simple gauge set to 1 on startup. If the metric disappears
	// from the metrics endpoint, the advisor has crashed.
	ControllerRunning prometheus.Gauge

	// DataFreshness stores the age (in seconds) of cached data since the
	// last successful update, refreshed every second by a background
	// goroutine. This enables direct alerting on stale data.
	// Labels: account_id, account_name, data_type
	DataFreshness *prometheus.GaugeVec

	// DataLastSuccess indicates whether the last collection attempt for a
	// data type succeeded (1) or failed (0).
	// Labels: account_id, account_name, data_type
	DataLastSuccess *prometheus.GaugeVec

	// AnalysisDuration measures how long a full commitment analysis pass
	// takes, from cache reads through curve generation.
	AnalysisDuration prometheus.Histogram

	// RecommendedCoverage is the optimal coverage in on-demand-equivalent
	// $/hour: the point of maximum net savings over the analysis window.
	RecommendedCoverage prometheus.Gauge

	// RecommendedCommitment is the optimal coverage expressed as the
	// discounted commitment actually paid, in $/hour.
	RecommendedCommitment prometheus.Gauge

	// ConservativeCoverage is the knee-point coverage in on-demand-
	// equivalent $/hour, where marginal returns flatten out.
	ConservativeCoverage prometheus.Gauge

	// MaxNetSavings is the net savings at the recommended coverage over
	// the analysis window, in dollars.
	MaxNetSavings prometheus.Gauge

	// BreakevenCoverage is the lowest sampled coverage where net savings
	// turn negative. Set to -1 when no sampled coverage loses money, since
	// 0 is itself a valid coverage.
	BreakevenCoverage prometheus.Gauge

	// UsagePercentile reports where the recommended coverage sits in the
	// usage distribution, as percent of peak usage.
	// Labels: percentile ("p50", "p75", "p90")
	UsagePercentile *prometheus.GaugeVec

	// CurrentCoverage is the fleet's current aggregate coverage in
	// on-demand-equivalent $/hour, derived from active Savings Plans.
	CurrentCoverage prometheus.Gauge

	// CurrentCommitment is the fleet's current aggregate hourly commitment
	// in $/hour.
	CurrentCommitment prometheus.Gauge

	// CurrentNetSavings is the net savings at the current coverage over
	// the analysis window, in dollars. Negative when losing money.
	CurrentNetSavings prometheus.Gauge

	// EffectiveSavingsRate is the realized blended savings rate over the
	// analysis window, in percent.
	EffectiveSavingsRate prometheus.Gauge

	// SpilloverPercent is the share of total cost paid at on-demand rates
	// above the commitment, in percent.
	SpilloverPercent prometheus.Gauge

	// WastePercent is the share of total cost spent on unused commitment,
	// in percent.
	WastePercent prometheus.Gauge

	// CoverageZone is a one-hot gauge over coverage zones: the zone the
	// current coverage falls in carries 1, all others 0. The one-hot shape
	// keeps zone transitions visible in a single PromQL expression.
	// Labels: zone
	CoverageZone *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics with the provided
// registry. The registry is typically the controller-runtime metrics registry
// (ctrlmetrics.Registry) which exposes metrics via the /metrics endpoint.
//
// Example usage:
//
//	import ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
//	m := metrics.NewMetrics(ctrlmetrics.Registry)
//	m.ControllerRunning.Set(1)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lastUpdateTimes: make(map[string]time.Time),
		stopCh:          make(chan struct{}),

		ControllerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricControllerRunning,
			Help: "Indicates whether the Covenant advisor is running (1 = running)",
		}),

		DataFreshness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricDataFreshnessSeconds,
			Help: "Age of cached data in seconds since last successful update (updated every second)",
		}, []string{LabelAccountID, LabelAccountName, LabelDataType}),

		DataLastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricDataLastSuccess,
			Help: "Indicator of whether the last data collection succeeded (1 = success, 0 = failed)",
		}, []string{LabelAccountID, LabelAccountName, LabelDataType}),

		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: MetricAnalysisDurationSeconds,
			Help: "Duration of a full commitment analysis pass in seconds",
			// Analysis is pure in-memory math; sub-millisecond to low seconds
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 5},
		}),

		RecommendedCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRecommendedCoverage,
			Help: "Optimal coverage in on-demand-equivalent USD/hour (maximum net savings)",
		}),

		RecommendedCommitment: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricRecommendedCommitment,
			Help: "Optimal coverage expressed as discounted hourly commitment (USD/hour)",
		}),

		ConservativeCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricConservativeCoverage,
			Help: "Knee-point coverage in on-demand-equivalent USD/hour (diminishing returns)",
		}),

		MaxNetSavings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricMaxNetSavings,
			Help: "Net savings at the recommended coverage over the analysis window (USD)",
		}),

		BreakevenCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricBreakevenCoverage,
			Help: "Lowest sampled coverage where net savings turn negative (USD/hour, -1 when none)",
		}),

		UsagePercentile: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricUsagePercentile,
			Help: "Usage distribution percentiles as percent of peak usage",
		}, []string{LabelPercentile}),

		CurrentCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCurrentCoverage,
			Help: "Current aggregate coverage from active Savings Plans (on-demand-equivalent USD/hour)",
		}),

		CurrentCommitment: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCurrentCommitment,
			Help: "Current aggregate hourly Savings Plan commitment (USD/hour)",
		}),

		CurrentNetSavings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricCurrentNetSavings,
			Help: "Net savings at the current coverage over the analysis window (USD)",
		}),

		EffectiveSavingsRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricEffectiveSavingsRate,
			Help: "Realized blended savings rate over the analysis window (percent)",
		}),

		SpilloverPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSpilloverPercent,
			Help: "Share of total cost paid at on-demand rates above the commitment (percent)",
		}),

		WastePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricWastePercent,
			Help: "Share of total cost spent on unused commitment (percent)",
		}),

		CoverageZone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricCoverageZone,
			Help: "One-hot coverage zone indicator (1 = current coverage is in this zone)",
		}, []string{LabelZone}),
	}

	reg.MustRegister(
		m.ControllerRunning,
		m.DataFreshness,
		m.DataLastSuccess,
		m.AnalysisDuration,
		m.RecommendedCoverage,
		m.RecommendedCommitment,
		m.ConservativeCoverage,
		m.MaxNetSavings,
		m.BreakevenCoverage,
		m.UsagePercentile,
		m.CurrentCoverage,
		m.CurrentCommitment,
		m.CurrentNetSavings,
		m.EffectiveSavingsRate,
		m.SpilloverPercent,
		m.WastePercent,
		m.CoverageZone,
	)

	// Background goroutine keeps freshness gauges current every second
	go m.updateDataFreshnessLoop()

	return m
}

// RecordRecommendation publishes the advisor's recommendation gauges from an
// optimal-coverage result, the knee-point coverage, and the savings curve.
func (m *Metrics) RecordRecommendation(optimal engine.OptimalResult, kneeCoverage float64, curve engine.SavingsCurve) {
	m.RecommendedCoverage.Set(optimal.CoverageUnits)
	m.RecommendedCommitment.Set(optimal.CommitmentUnits)
	m.ConservativeCoverage.Set(kneeCoverage)
	m.MaxNetSavings.Set(optimal.MaxNetSavings)

	m.UsagePercentile.WithLabelValues("p50").Set(optimal.Percentiles.P50)
	m.UsagePercentile.WithLabelValues("p75").Set(optimal.Percentiles.P75)
	m.UsagePercentile.WithLabelValues("p90").Set(optimal.Percentiles.P90)

	if curve.BreakevenIndex >= 0 && curve.BreakevenIndex < len(curve.Points) {
		m.BreakevenCoverage.Set(curve.Points[curve.BreakevenIndex].Coverage)
	} else {
		// 0 would read as a real coverage; a sentinel below any valid
		// coverage keeps "no breakeven" distinguishable.
		m.BreakevenCoverage.Set(-1)
	}
}

// RecordCurrentPosition publishes the gauges describing where the fleet's
// existing commitment sits: the cost report at current coverage and the
// zone classification.
func (m *Metrics) RecordCurrentPosition(coverage, commitment float64, report engine.CostReport, zone engine.ZoneAssessment) {
	m.CurrentCoverage.Set(coverage)
	m.CurrentCommitment.Set(commitment)
	m.CurrentNetSavings.Set(zone.NetSavings)
	m.EffectiveSavingsRate.Set(zone.SavingsPercent)
	m.SpilloverPercent.Set(report.SpilloverPercentage)
	m.WastePercent.Set(report.WastePercentage)

	for _, z := range engine.Zones {
		value := float64(0)
		if z == zone.Zone {
			value = 1
		}
		m.CoverageZone.WithLabelValues(string(z)).Set(value)
	}
}

// RecordCollection records whether a data collection attempt succeeded and,
// on success, marks the data type updated for freshness tracking.
func (m *Metrics) RecordCollection(accountID, accountName, dataType string, success bool) {
	value := float64(0)
	if success {
		value = 1
		m.MarkDataUpdated(accountID, accountName, dataType)
	}
	m.DataLastSuccess.WithLabelValues(accountID, accountName, dataType).Set(value)
}

// MarkDataUpdated marks that data of a specific type has been successfully
// updated. This records the current timestamp, which the background goroutine
// uses to calculate the freshness age.
func (m *Metrics) MarkDataUpdated(accountID, accountName, dataType string) {
	key := accountID + ":" + accountName + ":" + dataType
	m.lastUpdateMu.Lock()
	m.lastUpdateTimes[key] = time.Now()
	m.lastUpdateMu.Unlock()
}

// updateDataFreshnessLoop runs in a background goroutine and updates the
// freshness gauges every second until Stop() is called.
func (m *Metrics) updateDataFreshnessLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.updateAllDataFreshnessMetrics()
		case <-m.stopCh:
			return
		}
	}
}

// updateAllDataFreshnessMetrics recomputes every freshness gauge from its
// last update timestamp.
func (m *Metrics) updateAllDataFreshnessMetrics() {
	now := time.Now()

	m.lastUpdateMu.RLock()
	defer m.lastUpdateMu.RUnlock()

	for key, lastUpdate := range m.lastUpdateTimes {
		// Key format: "account_id:account_name:data_type"
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}

		m.DataFreshness.WithLabelValues(parts[0], parts[1], parts[2]).
			Set(now.Sub(lastUpdate).Seconds())
	}
}

// Stop signals the background freshness goroutine to stop.
// This should be called when the advisor is shutting down.
func (m *Metrics) Stop() {
	close(m.stopCh)
}
