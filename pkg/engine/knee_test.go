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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kneeTestSeries has three usage tiers so the marginal savings rate steps
// down twice: steeply profitable up to 5, marginal up to 10, negative
// beyond. 20 hours at a 50% discount.
func kneeTestSeries() []float64 {
	series := make([]float64, 0, 20)
	series = append(series, 1)
	for i := 0; i < 7; i++ {
		series = append(series, 5)
	}
	for i := 0; i < 4; i++ {
		series = append(series, 10)
	}
	for i := 0; i < 8; i++ {
		series = append(series, 20)
	}
	return series
}

// TestCalculateKneePointFindsDiminishingReturns: the marginal rate between
// tiers drops from 9 to 2 (per unit of coverage, scaled), crossing below
// 30% of the peak at the 5-dollar tier boundary. The knee lands there.
func TestCalculateKneePointFindsDiminishingReturns(t *testing.T) {
	series := kneeTestSeries()
	const savingsPct = 50.0

	// The optimum sits at the 10-dollar tier (within scan resolution).
	optimal := CalculateOptimalCoverage(series, savingsPct)
	require.InDelta(t, 10.0, optimal.CoverageUnits, 0.2)

	minCost, _ := seriesBounds(series)
	knee := CalculateKneePoint(series, savingsPct, minCost, optimal.CoverageUnits)

	// Sampling step is (1.2*10 - 1)/200 = 0.055; the knee should sit within
	// a few steps of the tier boundary at 5.
	assert.InDelta(t, 5.0, knee, 0.2)
}

// TestCalculateKneePointFallback: a single-kink series has a constant
// marginal rate between floor and optimum, so the rate never drops below
// the threshold and the documented 60%-of-the-way fallback applies.
func TestCalculateKneePointFallback(t *testing.T) {
	// One dip hour, nine at the plateau: savings climbs linearly from the
	// floor to the plateau.
	series := []float64{2, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	const savingsPct = 30.0

	optimal := CalculateOptimalCoverage(series, savingsPct)
	require.InDelta(t, 10.0, optimal.CoverageUnits, 1e-9)

	knee := CalculateKneePoint(series, savingsPct, 2, optimal.CoverageUnits)

	assert.InDelta(t, 2+0.60*(10-2), knee, 1e-9)
}

// TestCalculateKneePointDegenerate: when the optimum does not exceed the
// floor there is nothing to balance; the floor is returned.
func TestCalculateKneePointDegenerate(t *testing.T) {
	series := []float64{10, 10, 10, 10}

	assert.Equal(t, 10.0, CalculateKneePoint(series, 30, 10, 10))
	assert.Equal(t, 5.0, CalculateKneePoint(series, 30, 5, 3))
	assert.Equal(t, 0.0, CalculateKneePoint(nil, 30, 0, 10))
}

// TestCalculateKneePointBounds: wherever the knee lands, it stays inside
// [minCost, optimalCoverage] - a conservative recommendation never exceeds
// the optimum.
func TestCalculateKneePointBounds(t *testing.T) {
	cases := []struct {
		name       string
		series     []float64
		savingsPct float64
	}{
		{"three tiers", kneeTestSeries(), 50},
		{"daily cycle", []float64{
			4, 6, 8, 8, 9, 11, 14, 18, 22, 25, 24, 23,
			21, 20, 19, 18, 17, 15, 12, 10, 8, 6, 5, 4,
		}, 35},
		{"gentle ramp", []float64{2, 10, 10, 10, 10, 10, 10, 10, 10, 10}, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			optimal := CalculateOptimalCoverage(tc.series, tc.savingsPct)
			minCost, _ := seriesBounds(tc.series)

			knee := CalculateKneePoint(tc.series, tc.savingsPct, minCost, optimal.CoverageUnits)

			assert.GreaterOrEqual(t, knee, minCost)
			assert.LessOrEqual(t, knee, optimal.CoverageUnits)
		})
	}
}
