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

const (
	// kneeSamples is the number of coverage samples in the knee search.
	kneeSamples = 200

	// kneeRangeFactor extends the sampled range past the optimal coverage so
	// the marginal rate is observable on both sides of the optimum.
	kneeRangeFactor = 1.2

	// kneeRateThreshold is the fraction of the peak marginal rate below
	// which additional commitment is considered to have stopped paying off.
	kneeRateThreshold = 0.30

	// kneeFallbackFraction places the recommendation 60% of the way from the
	// usage floor to the optimum when the marginal rate never falls below
	// the threshold within the sampled range.
	kneeFallbackFraction = 0.60
)

// CalculateKneePoint recommends a "balanced" coverage level: one that
// captures most of the available savings without committing all the way to
// the fragile mathematical optimum.
//
// The search samples savings percent at 200 coverage levels from minCost to
// 1.2x optimalCoverage, computes the marginal rate (delta savings percent
// per delta coverage) between consecutive samples inside
// (minCost, optimalCoverage], finds the peak rate (typically near minCost,
// where each extra committed dollar buys the most savings), and walks
// forward from the peak until the rate first drops below 30% of it. The
// knee is the last point before that drop.
//
// If the rate never drops below the threshold across the sampled range, the
// documented fallback of minCost + 0.60*(optimalCoverage - minCost) is
// returned. That is an expected outcome for gently-curved series, not an
// error.
func CalculateKneePoint(series []float64, savingsPct, minCost, optimalCoverage float64) float64 {
	if len(series) == 0 || optimalCoverage <= minCost {
		return minCost
	}

	total := seriesSum(series)
	upper := optimalCoverage * kneeRangeFactor
	step := (upper - minCost) / kneeSamples

	type sample struct {
		coverage       float64
		savingsPercent float64
	}

	samples := make([]sample, 0, kneeSamples+1)
	for i := 0; i <= kneeSamples; i++ {
		coverage := minCost + float64(i)*step
		s := sample{coverage: coverage}
		if total > 0 {
			s.savingsPercent = 100 * netSavingsAt(series, coverage, savingsPct) / total
		}
		samples = append(samples, s)
	}

	// Marginal rate between consecutive samples, restricted to the window
	// (minCost, optimalCoverage]. rates[i] is the rate from sample i to i+1.
	type marginal struct {
		index int
		rate  float64
	}
	var rates []marginal
	for i := 0; i < len(samples)-1; i++ {
		next := samples[i+1]
		if next.coverage <= minCost || next.coverage > optimalCoverage {
			continue
		}
		dc := next.coverage - samples[i].coverage
		if dc <= 0 {
			continue
		}
		rates = append(rates, marginal{
			index: i,
			rate:  (next.savingsPercent - samples[i].savingsPercent) / dc,
		})
	}

	fallback := minCost + kneeFallbackFraction*(optimalCoverage-minCost)
	if len(rates) == 0 {
		return fallback
	}

	peak := 0
	for i, r := range rates {
		if r.rate > rates[peak].rate {
			peak = i
		}
	}

	threshold := kneeRateThreshold * rates[peak].rate
	for i := peak + 1; i < len(rates); i++ {
		if rates[i].rate < threshold {
			// Last point before the marginal rate first dropped below the
			// threshold.
			return samples[rates[i-1].index+1].coverage
		}
	}

	return fallback
}
