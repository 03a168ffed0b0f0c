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

const (
	// curvePoints is the number of samples in the dense savings curve.
	curvePoints = 500

	// breakevenScanSteps is the resolution of the coarse scan that locates
	// the breakeven coverage before the dense curve is generated.
	breakevenScanSteps = 100

	// breakevenHeadroom extends the curve past the detected breakeven so the
	// losing-money region is visible beyond the zero crossing.
	breakevenHeadroom = 1.1
)

// GenerateSavingsCurve produces a dense sampling of net savings as a
// function of coverage over [0, upperBound], where upperBound comfortably
// includes the breakeven point: a coarse scan first locates the coverage at
// which net savings turns negative, and the dense curve extends 1.1x past
// it. When no breakeven exists within the scanned range the curve runs to
// max(series).
//
// Besides the points themselves, the curve carries the four indices that
// partition it into the five risk-zone segments. Returns an empty curve for
// an empty series.
func GenerateSavingsCurve(series []float64, savingsPct float64) SavingsCurve {
	curve := SavingsCurve{
		MinCostIndex:         -1,
		OptimalIndex:         -1,
		MinHourlyReturnIndex: -1,
		BreakevenIndex:       -1,
	}
	if len(series) == 0 {
		return curve
	}

	lo, hi := seriesBounds(series)
	total := seriesSum(series)

	upperBound := hi
	if breakeven, found := findBreakevenCoverage(series, savingsPct, hi); found {
		upperBound = breakeven * breakevenHeadroom
	}
	// An all-zero series collapses the curve to the origin: step becomes 0
	// and every sampled point sits at coverage 0.

	step := upperBound / curvePoints
	curve.Points = make([]CurvePoint, 0, curvePoints+1)

	for i := 0; i <= curvePoints; i++ {
		coverage := float64(i) * step
		netSavings := netSavingsAt(series, coverage, savingsPct)

		point := CurvePoint{
			Coverage:   coverage,
			Commitment: CommitmentFromCoverage(coverage, savingsPct),
			NetSavings: netSavings,
		}
		if total > 0 {
			point.SavingsPercent = 100 * netSavings / total
		}
		curve.Points = append(curve.Points, point)
	}

	curve.locateIndices(lo)
	return curve
}

// netSavingsAt evaluates the net savings of committing to the given
// coverage over the whole series: total on-demand cost minus commitment and
// spillover. Shared by the optimizer, the curve generator, and the zone
// classifier so the three can never disagree on the formula.
func netSavingsAt(series []float64, coverage, savingsPct float64) float64 {
	discountFactor := 1 - savingsPct/100
	commitmentCost := coverage * discountFactor * float64(len(series))

	total := 0.0
	spilloverCost := 0.0
	for _, usage := range series {
		total += usage
		spilloverCost += math.Max(0, usage-coverage)
	}

	return total - (commitmentCost + spilloverCost)
}

// findBreakevenCoverage coarsely scans coverage in [0, hi] for the first
// sign change of net savings from non-negative to negative. Returns the
// coverage at which savings first went negative and whether one was found.
func findBreakevenCoverage(series []float64, savingsPct, hi float64) (float64, bool) {
	if hi <= 0 {
		return 0, false
	}
	step := hi / breakevenScanSteps
	for i := 1; i <= breakevenScanSteps; i++ {
		coverage := float64(i) * step
		if netSavingsAt(series, coverage, savingsPct) < 0 {
			return coverage, true
		}
	}
	return 0, false
}

// locateIndices derives the four zone-partition indices from the sampled
// points. minCost is the minimum of the usage series.
func (c *SavingsCurve) locateIndices(minCost float64) {
	// First point at or above the guaranteed usage floor.
	for i, p := range c.Points {
		if p.Coverage >= minCost {
			c.MinCostIndex = i
			break
		}
	}

	// Maximum net savings; first maximum wins to match the optimizer's
	// tie-break.
	best := math.Inf(-1)
	for i, p := range c.Points {
		if p.NetSavings > best {
			best = p.NetSavings
			c.OptimalIndex = i
		}
	}
	if c.OptimalIndex < 0 {
		return
	}

	// Savings achieved by committing only the floor; the curve falls back
	// through this level somewhere past the optimum.
	floorSavings := 0.0
	if c.MinCostIndex >= 0 {
		floorSavings = c.Points[c.MinCostIndex].NetSavings
	}

	for i := c.OptimalIndex + 1; i < len(c.Points); i++ {
		if c.MinHourlyReturnIndex < 0 && c.Points[i].NetSavings <= floorSavings {
			c.MinHourlyReturnIndex = i
		}
		if c.BreakevenIndex < 0 && c.Points[i].SavingsPercent <= 0 {
			c.BreakevenIndex = i
		}
		if c.MinHourlyReturnIndex >= 0 && c.BreakevenIndex >= 0 {
			break
		}
	}
}
