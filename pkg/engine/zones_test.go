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

func TestDetectCoverageZoneLosingMoney(t *testing.T) {
	// Coverage triple the constant usage: the commitment alone exceeds what
	// on-demand would have cost.
	assessment := DetectCoverageZone(15, []float64{5, 5, 5, 5}, 30)

	assert.Equal(t, ZoneLosingMoney, assessment.Zone)
	assert.InDelta(t, -22.0, assessment.NetSavings, 1e-9)
	assert.InDelta(t, -110.0, assessment.SavingsPercent, 1e-9)
}

func TestDetectCoverageZoneBuilding(t *testing.T) {
	series := []float64{10, 12, 14, 12, 10, 12}

	assessment := DetectCoverageZone(5, series, 40)

	assert.Equal(t, ZoneBuilding, assessment.Zone)
	// Below the floor every committed dollar is fully used: savings is the
	// nominal discount on the committed amount.
	assert.InDelta(t, 5*float64(len(series))*0.40, assessment.NetSavings, 1e-9)
}

func TestDetectCoverageZoneGaining(t *testing.T) {
	series := []float64{10, 12, 14, 12, 10, 12}
	optimal := CalculateOptimalCoverage(series, 40)

	// Just above the floor but at or below the optimum.
	assessment := DetectCoverageZone(10.5, series, 40)

	require.LessOrEqual(t, 10.5, optimal.CoverageUnits)
	assert.Equal(t, ZoneGaining, assessment.Zone)
	assert.Greater(t, assessment.NetSavings, 0.0)
}

func TestDetectCoverageZoneWastingAndVeryBad(t *testing.T) {
	series := []float64{10, 12, 14, 12, 10, 12}
	optimal := CalculateOptimalCoverage(series, 40)

	// Slightly past the optimum: still beats the floor-only baseline.
	wasting := DetectCoverageZone(optimal.CoverageUnits+0.1, series, 40)
	assert.Equal(t, ZoneWasting, wasting.Zone)

	// Far past the optimum but not yet negative: worse than committing the
	// floor alone.
	minHourlySavings := 10 * float64(len(series)) * 0.40
	veryBad := DetectCoverageZone(17, series, 40)
	require.Less(t, veryBad.NetSavings, minHourlySavings)
	require.Greater(t, veryBad.SavingsPercent, 0.0)
	assert.Equal(t, ZoneVeryBad, veryBad.Zone)
}

// TestDetectCoverageZonePartition sweeps coverage across [ε, 2*max] and
// checks the partition: exactly one zone per point, and zones appear in
// monotonic order as coverage increases.
func TestDetectCoverageZonePartition(t *testing.T) {
	series := []float64{
		4, 6, 8, 8, 9, 11, 14, 18, 22, 25, 24, 23,
		21, 20, 19, 18, 17, 15, 12, 10, 8, 6, 5, 4,
	}
	const savingsPct = 35.0

	order := map[Zone]int{
		ZoneBuilding:    0,
		ZoneGaining:     1,
		ZoneWasting:     2,
		ZoneVeryBad:     3,
		ZoneLosingMoney: 4,
	}

	_, hi := seriesBounds(series)
	prevRank := -1
	seen := map[Zone]bool{}

	for coverage := 0.01; coverage <= 2*hi; coverage += 0.05 {
		assessment := DetectCoverageZone(coverage, series, savingsPct)
		rank, known := order[assessment.Zone]
		require.True(t, known, "unknown zone %q at coverage %v", assessment.Zone, coverage)

		assert.GreaterOrEqual(t, rank, prevRank,
			"zone regressed from rank %d to %q at coverage %v", prevRank, assessment.Zone, coverage)
		prevRank = rank
		seen[assessment.Zone] = true
	}

	// This series exercises all five zones across the sweep.
	for _, zone := range Zones {
		assert.True(t, seen[zone], "zone %q never produced", zone)
	}
}

func TestDetectCoverageZoneEmptySeries(t *testing.T) {
	assessment := DetectCoverageZone(5, nil, 30)
	assert.Equal(t, ZoneBuilding, assessment.Zone)
	assert.Zero(t, assessment.NetSavings)
}
