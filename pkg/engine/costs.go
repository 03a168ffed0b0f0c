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

import "math"

// CalculateCosts evaluates a coverage level against an hourly usage series
// and returns the full per-hour and aggregate cost breakdown.
//
// series holds realized on-demand cost per hour; coverage is the
// on-demand-equivalent usage the commitment promises to cover; savingsPct is
// the nominal discount in [0,100). onDemandRate is an optional unit price
// (pass 0 to skip) used only to derive the cosmetic usage-unit quantities in
// the report; it never affects costs.
//
// An empty series yields all-zero aggregates. No errors are raised.
func CalculateCosts(series []float64, coverage, savingsPct, onDemandRate float64) CostReport {
	discountFactor := 1 - savingsPct/100
	hourlyCommitment := coverage * discountFactor

	report := CostReport{
		Hours: make([]HourlyBreakdown, 0, len(series)),
	}

	for _, usage := range series {
		spillover := math.Max(0, usage-coverage)
		covered := math.Min(usage, coverage)
		wasted := math.Max(0, coverage-usage)

		hour := HourlyBreakdown{
			OnDemandCost:    usage,
			SpilloverCost:   spillover,
			CoveredCost:     covered * discountFactor,
			WasteCost:       wasted * discountFactor,
			SavingsPlanCost: hourlyCommitment + spillover,
		}
		report.Hours = append(report.Hours, hour)

		report.TotalOnDemandCost += hour.OnDemandCost
		report.TotalSavingsPlanCost += hour.SavingsPlanCost
		report.TotalCommitmentCost += hourlyCommitment
		report.TotalSpilloverCost += hour.SpilloverCost
		report.TotalCoveredCost += hour.CoveredCost
		report.TotalWasteCost += hour.WasteCost
	}

	if report.TotalSavingsPlanCost > 0 {
		report.SpilloverPercentage = 100 * report.TotalSpilloverCost / report.TotalSavingsPlanCost
	}
	if report.TotalCommitmentCost > 0 {
		report.WastePercentage = 100 * report.TotalWasteCost / report.TotalCommitmentCost
	}

	report.Savings = report.TotalOnDemandCost - report.TotalSavingsPlanCost
	report.SavingsPercentageActual = EffectiveSavingsRate(report.TotalOnDemandCost, report.TotalSavingsPlanCost)

	// Usage-unit quantities are display sugar: dollars divided by the unit
	// price. Skipped entirely when no rate is supplied.
	if onDemandRate > 0 {
		report.CoveredUsageUnits = report.TotalCoveredCost / discountFactorSafe(discountFactor) / onDemandRate
		report.WastedUsageUnits = report.TotalWasteCost / discountFactorSafe(discountFactor) / onDemandRate
	}

	if len(series) > 0 {
		report.Optimal = CalculateOptimalCoverage(series, savingsPct)
	}

	return report
}

// discountFactorSafe guards the cosmetic unit conversion against a zero
// discount factor (savingsPct == 100). Costs never divide by this.
func discountFactorSafe(f float64) float64 {
	if f <= 0 {
		return 1
	}
	return f
}
