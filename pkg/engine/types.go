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

package engine

// HourlyBreakdown is the cost decomposition for a single hour at a given
// coverage level.
//
// Per-hour invariant: SavingsPlanCost = coverage*(1-r) + SpilloverCost,
// where the first term is the fixed hourly commitment that is paid whether
// or not it is used.
type HourlyBreakdown struct {
	// OnDemandCost is the realized pay-as-you-go cost for this hour ($).
	OnDemandCost float64

	// SpilloverCost is usage above the coverage level, billed at the full
	// on-demand rate: max(0, OnDemandCost - coverage).
	SpilloverCost float64

	// CoveredCost is the discounted cost of the usage the commitment
	// absorbed: min(OnDemandCost, coverage) * (1-r).
	CoveredCost float64

	// WasteCost is the discounted cost of paid-for coverage that went
	// unused this hour: max(0, coverage - OnDemandCost) * (1-r).
	WasteCost float64

	// SavingsPlanCost is the total paid for this hour under the plan:
	// the fixed hourly commitment plus spillover.
	SavingsPlanCost float64
}

// CostReport aggregates the per-hour breakdowns for a usage series at a
// specific coverage level, together with the independently computed optimum
// for the same series. Every consumer of a cost breakdown also wants the
// optimum for comparison, so it is attached here rather than fetched twice.
type CostReport struct {
	// Hours holds the per-hour breakdowns in series order.
	Hours []HourlyBreakdown

	// TotalOnDemandCost is the sum of realized on-demand cost over the series.
	TotalOnDemandCost float64

	// TotalSavingsPlanCost is the sum of commitment plus spillover over the series.
	TotalSavingsPlanCost float64

	// TotalCommitmentCost is the fixed commitment paid over the series:
	// coverage * (1-r) * len(series).
	TotalCommitmentCost float64

	// TotalSpilloverCost is the sum of above-coverage usage billed on demand.
	TotalSpilloverCost float64

	// TotalCoveredCost is the sum of discounted covered usage.
	TotalCoveredCost float64

	// TotalWasteCost is the sum of discounted unused commitment.
	TotalWasteCost float64

	// SpilloverPercentage is 100 * TotalSpilloverCost / TotalSavingsPlanCost,
	// or 0 when the denominator is 0.
	SpilloverPercentage float64

	// WastePercentage is 100 * TotalWasteCost / TotalCommitmentCost,
	// or 0 when the denominator is 0.
	WastePercentage float64

	// Savings is TotalOnDemandCost - TotalSavingsPlanCost. Negative when the
	// commitment costs more than pure on-demand would have.
	Savings float64

	// SavingsPercentageActual is the realized savings rate including waste:
	// 100 * Savings / TotalOnDemandCost, or 0 when on-demand total is 0.
	// This differs from the nominal discount rate whenever coverage does not
	// exactly track usage.
	SavingsPercentageActual float64

	// CoveredUsageUnits and WastedUsageUnits are display-oriented quantities
	// derived by dividing covered/wasted dollar amounts by the on-demand unit
	// rate. They carry no cost information and are zero when no rate is given.
	CoveredUsageUnits float64
	WastedUsageUnits  float64

	// Optimal is the savings-maximizing coverage for the same series and
	// discount rate, attached for comparison against the evaluated coverage.
	Optimal OptimalResult
}

// Percentiles holds usage percentiles expressed as a percentage of the
// series maximum. They give the caller context for sanity-checking a
// recommendation; the optimizer itself does not use them.
type Percentiles struct {
	P50 float64
	P75 float64
	P90 float64
}

// OptimalResult is the outcome of the optimal-coverage search.
type OptimalResult struct {
	// CoverageUnits is the coverage level ($/hour of on-demand-equivalent
	// usage) that maximizes net savings over the observed range.
	CoverageUnits float64

	// CommitmentUnits is the discounted amount actually paid per hour for
	// that coverage: CoverageUnits * (1-r).
	CommitmentUnits float64

	// MaxNetSavings is the net savings achieved at the optimal coverage over
	// the whole series.
	MaxNetSavings float64

	// Percentiles of the usage series, as a percentage of max(series).
	Percentiles Percentiles
}

// CurvePoint is one sample of the coverage-to-savings curve.
type CurvePoint struct {
	// Coverage is the sampled coverage level ($/hour).
	Coverage float64

	// Commitment is Coverage * (1-r).
	Commitment float64

	// NetSavings is total on-demand cost minus total plan cost at this
	// coverage, over the whole series.
	NetSavings float64

	// SavingsPercent is 100 * NetSavings / total on-demand cost.
	SavingsPercent float64
}

// SavingsCurve is a dense sampling of net savings as a function of coverage,
// monotonically increasing in coverage. The four indices partition the curve
// into the five risk-zone segments used by classification and visualization.
//
// An index of -1 means the corresponding point does not exist within the
// sampled range (for example, no breakeven was found).
type SavingsCurve struct {
	Points []CurvePoint

	// MinCostIndex is the first point with Coverage >= min(series).
	MinCostIndex int

	// OptimalIndex is the point of maximum NetSavings across the curve. It
	// must agree with CalculateOptimalCoverage within curve resolution.
	OptimalIndex int

	// MinHourlyReturnIndex is the first point after OptimalIndex where
	// NetSavings falls back to or below the savings achieved at MinCostIndex.
	MinHourlyReturnIndex int

	// BreakevenIndex is the first point after OptimalIndex where
	// SavingsPercent drops to or below zero.
	BreakevenIndex int
}

// Zone is a qualitative label for how a coverage level is performing
// relative to the guaranteed usage floor, the optimal coverage, and the
// breakeven point.
type Zone string

const (
	// ZoneBuilding: under-committed relative even to the guaranteed floor
	// (coverage below the minimum observed usage).
	ZoneBuilding Zone = "building"

	// ZoneGaining: on the upslope toward the optimum.
	ZoneGaining Zone = "gaining"

	// ZoneWasting: past the optimum but still better than committing only
	// the usage floor.
	ZoneWasting Zone = "wasting"

	// ZoneVeryBad: past the optimum and savings have degraded below what
	// committing only the usage floor would have earned.
	ZoneVeryBad Zone = "very-bad"

	// ZoneLosingMoney: the commitment costs more than pure on-demand.
	ZoneLosingMoney Zone = "losing-money"
)

// Zones lists all zones in increasing-coverage order for a fixed series and
// rate. Useful for metrics emission and exhaustiveness checks.
var Zones = []Zone{ZoneBuilding, ZoneGaining, ZoneWasting, ZoneVeryBad, ZoneLosingMoney}

// ZoneAssessment is the classification of a specific coverage level.
type ZoneAssessment struct {
	Zone Zone

	// NetSavings is the net savings at the assessed coverage over the series.
	NetSavings float64

	// SavingsPercent is 100 * NetSavings / total on-demand cost.
	SavingsPercent float64
}
