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

import (
	"math"
	"sort"
)

// optimalScanSteps is the number of equal coverage steps sampled between
// min(series) and max(series) by the optimal-coverage search.
const optimalScanSteps = 100

// CalculateOptimalCoverage finds the coverage level that maximizes net
// savings for the given usage series and nominal discount rate.
//
// Precondition (documented, not checked): netSavings(coverage) is unimodal
// for this piecewise-linear construction. Commitment cost grows linearly
// with coverage while spillover shrinks piecewise-linearly, so the scan may
// stop as soon as net savings strictly drops below the best seen. The first
// point attaining the maximum wins; a later plateau point is never returned.
// Replacing the scan with ternary or golden-section search is permissible
// only if it preserves that tie-break.
//
// The returned percentiles (p50/p75/p90 of the sorted series, as a
// percentage of the maximum) are caller-side context and do not influence
// the search.
func CalculateOptimalCoverage(series []float64, savingsPct float64) OptimalResult {
	if len(series) == 0 {
		return OptimalResult{}
	}

	lo, hi := seriesBounds(series)
	total := seriesSum(series)
	discountFactor := 1 - savingsPct/100
	n := float64(len(series))

	result := OptimalResult{
		Percentiles: seriesPercentiles(series, hi),
	}

	// Flat series: the savings function is linear in coverage up to the
	// constant usage level, so the optimum is the level itself.
	if hi == lo {
		result.CoverageUnits = lo
		result.CommitmentUnits = CommitmentFromCoverage(lo, savingsPct)
		result.MaxNetSavings = total * savingsPct / 100
		return result
	}

	step := (hi - lo) / optimalScanSteps
	bestCoverage := lo
	bestSavings := math.Inf(-1)

	for i := 0; i <= optimalScanSteps; i++ {
		coverage := lo + float64(i)*step

		commitmentCost := coverage * discountFactor * n
		spilloverCost := 0.0
		for _, usage := range series {
			spilloverCost += math.Max(0, usage-coverage)
		}

		netSavings := total - (commitmentCost + spilloverCost)

		if netSavings > bestSavings {
			bestSavings = netSavings
			bestCoverage = coverage
		} else if netSavings < bestSavings {
			// Past the peak of a unimodal function; nothing better ahead.
			break
		}
	}

	result.CoverageUnits = bestCoverage
	result.CommitmentUnits = CommitmentFromCoverage(bestCoverage, savingsPct)
	result.MaxNetSavings = bestSavings
	return result
}

// seriesBounds returns the minimum and maximum of a non-empty series.
func seriesBounds(series []float64) (lo, hi float64) {
	lo, hi = series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// seriesSum returns the sum of the series.
func seriesSum(series []float64) float64 {
	total := 0.0
	for _, v := range series {
		total += v
	}
	return total
}

// seriesPercentiles returns p50/p75/p90 of the sorted series as a
// percentage of the supplied maximum. Returns zeros when the maximum is not
// positive.
func seriesPercentiles(series []float64, maxUsage float64) Percentiles {
	if maxUsage <= 0 {
		return Percentiles{}
	}

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	at := func(pct float64) float64 {
		idx := int(math.Floor(pct * float64(len(sorted))))
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return 100 * sorted[idx] / maxUsage
	}

	return Percentiles{
		P50: at(0.50),
		P75: at(0.75),
		P90: at(0.90),
	}
}
