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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Parity vectors. These inputs and expected outputs are the shared contract
// between the independent implementations of this algorithm (interactive
// client and this advisor): for identical inputs, every implementation must
// match within 1% relative tolerance. Do not change a vector without
// updating every implementation in lockstep.

// within1pct matches an expected value with 1% relative tolerance, with an
// absolute floor for expectations at or near zero.
func within1pct(want float64) OmegaMatcher {
	tol := want * 0.01
	if tol < 0 {
		tol = -tol
	}
	if tol < 1e-9 {
		tol = 1e-9
	}
	return BeNumerically("~", want, tol)
}

// dailyCycleSeries is a 24-hour usage profile with a pronounced daytime
// peak, shared by several vectors below.
func dailyCycleSeries() []float64 {
	return []float64{
		4, 6, 8, 8, 9, 11, 14, 18, 22, 25, 24, 23,
		21, 20, 19, 18, 17, 15, 12, 10, 8, 6, 5, 4,
	}
}

var _ = Describe("rate conversions", func() {
	It("converts commitment to coverage at a 30% discount", func() {
		Expect(CoverageFromCommitment(7, 30)).To(within1pct(10))
	})

	It("converts coverage to commitment at a 30% discount", func() {
		Expect(CommitmentFromCoverage(10, 30)).To(within1pct(7))
	})

	It("computes a negative effective rate under over-commitment", func() {
		Expect(EffectiveSavingsRate(20, 42)).To(within1pct(-110))
	})
})

var _ = Describe("cost breakdown", func() {
	It("matches the spillover-and-waste-mix vector", func() {
		report := CalculateCosts([]float64{20, 20, 20, 20}, 15, 30, 0)

		Expect(report.TotalOnDemandCost).To(within1pct(80))
		Expect(report.TotalSavingsPlanCost).To(within1pct(62))
		Expect(report.Savings).To(within1pct(18))
		Expect(report.SavingsPercentageActual).To(within1pct(22.5))
	})

	It("matches the over-commitment vector", func() {
		report := CalculateCosts([]float64{5, 5, 5, 5}, 15, 30, 0)

		Expect(report.TotalOnDemandCost).To(within1pct(20))
		Expect(report.TotalSavingsPlanCost).To(within1pct(42))
		Expect(report.Savings).To(within1pct(-22))
	})

	It("matches the exact-coverage vector", func() {
		report := CalculateCosts([]float64{10, 10, 10, 10}, 10, 30, 0)

		Expect(report.Savings).To(within1pct(12))
		Expect(report.SavingsPercentageActual).To(within1pct(30))
	})
})

var _ = Describe("optimal coverage", func() {
	It("matches the flat-series vector exactly", func() {
		series := make([]float64, 168)
		for i := range series {
			series[i] = 12.5
		}

		result := CalculateOptimalCoverage(series, 30)

		Expect(result.CoverageUnits).To(Equal(12.5))
		Expect(result.MaxNetSavings).To(within1pct(630))
	})

	It("matches the single-dip vector", func() {
		series := []float64{2, 10, 10, 10, 10, 10, 10, 10, 10, 10}

		result := CalculateOptimalCoverage(series, 30)

		Expect(result.CoverageUnits).To(within1pct(10))
		Expect(result.CommitmentUnits).To(within1pct(7))
		Expect(result.MaxNetSavings).To(within1pct(22))
	})
})

var _ = Describe("zone classification", func() {
	series := dailyCycleSeries()
	const savingsPct = 35.0

	It("labels coverage below the floor as building", func() {
		Expect(DetectCoverageZone(2, series, savingsPct).Zone).To(Equal(ZoneBuilding))
	})

	It("labels coverage on the upslope as gaining", func() {
		Expect(DetectCoverageZone(6, series, savingsPct).Zone).To(Equal(ZoneGaining))
	})

	It("labels coverage just past the optimum as wasting", func() {
		assessment := DetectCoverageZone(10, series, savingsPct)
		Expect(assessment.Zone).To(Equal(ZoneWasting))
		Expect(assessment.NetSavings).To(within1pct(52))
	})

	It("labels deep over-commitment as very-bad", func() {
		assessment := DetectCoverageZone(16, series, savingsPct)
		Expect(assessment.Zone).To(Equal(ZoneVeryBad))
		Expect(assessment.NetSavings).To(within1pct(30.4))
	})

	It("labels past-breakeven coverage as losing-money", func() {
		assessment := DetectCoverageZone(25, series, savingsPct)
		Expect(assessment.Zone).To(Equal(ZoneLosingMoney))
		Expect(assessment.NetSavings).To(within1pct(-63))
	})
})

var _ = Describe("savings curve and knee point", func() {
	It("agrees with the optimizer on the optimum", func() {
		series := dailyCycleSeries()
		const savingsPct = 35.0

		optimal := CalculateOptimalCoverage(series, savingsPct)
		curve := GenerateSavingsCurve(series, savingsPct)

		// Within combined sampling resolution rather than 1%: the two scans
		// use different step sizes.
		lo, hi := seriesBounds(series)
		resolution := (hi-lo)/optimalScanSteps +
			curve.Points[1].Coverage - curve.Points[0].Coverage
		Expect(curve.Points[curve.OptimalIndex].Coverage).To(
			BeNumerically("~", optimal.CoverageUnits, resolution))
	})

	It("places the knee at the diminishing-returns tier boundary", func() {
		series := kneeTestSeries()
		const savingsPct = 50.0

		optimal := CalculateOptimalCoverage(series, savingsPct)
		minCost, _ := seriesBounds(series)
		knee := CalculateKneePoint(series, savingsPct, minCost, optimal.CoverageUnits)

		Expect(knee).To(BeNumerically("~", 5.0, 0.25))
	})

	It("applies the 60% fallback on a constant marginal rate", func() {
		series := []float64{2, 10, 10, 10, 10, 10, 10, 10, 10, 10}

		knee := CalculateKneePoint(series, 30, 2, 10)

		Expect(knee).To(within1pct(6.8))
	})
})
