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

// DetectCoverageZone classifies how a coverage level is performing for the
// given usage series and discount rate.
//
// Rules are evaluated in priority order; the first match wins:
//
//  1. savings percent <= 0             -> losing-money
//  2. coverage < min(series)           -> building
//  3. coverage <= optimal coverage     -> gaining
//  4. net savings < floor-only savings -> very-bad
//  5. otherwise                        -> wasting
//
// The five-way partition is exhaustive and mutually exclusive by
// construction: every coverage value maps to exactly one zone, and the
// zones appear in the order building, gaining, wasting/very-bad,
// losing-money as coverage increases.
func DetectCoverageZone(coverage float64, series []float64, savingsPct float64) ZoneAssessment {
	assessment := ZoneAssessment{}
	if len(series) == 0 {
		assessment.Zone = ZoneBuilding
		return assessment
	}

	lo, _ := seriesBounds(series)
	total := seriesSum(series)

	assessment.NetSavings = netSavingsAt(series, coverage, savingsPct)
	if total > 0 {
		assessment.SavingsPercent = 100 * assessment.NetSavings / total
	}

	optimal := CalculateOptimalCoverage(series, savingsPct)

	// Savings earned by committing only the guaranteed hourly floor. Zones 4
	// and 5 compare against this baseline: being past the optimum is merely
	// wasteful until returns drop below what the floor alone would earn.
	minHourlySavings := lo * float64(len(series)) * savingsPct / 100

	switch {
	case assessment.SavingsPercent <= 0:
		assessment.Zone = ZoneLosingMoney
	case coverage < lo:
		assessment.Zone = ZoneBuilding
	case coverage <= optimal.CoverageUnits:
		assessment.Zone = ZoneGaining
	case assessment.NetSavings < minHourlySavings:
		assessment.Zone = ZoneVeryBad
	default:
		assessment.Zone = ZoneWasting
	}

	return assessment
}
