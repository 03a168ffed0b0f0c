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

// CoverageFromCommitment converts a committed (discounted) hourly spend into
// the on-demand-equivalent usage it covers: commitment / (1 - savingsPct/100).
//
// When savingsPct >= 100 the divisor would be zero or negative, so the
// commitment is returned unchanged. Total function over real inputs.
func CoverageFromCommitment(commitment, savingsPct float64) float64 {
	if savingsPct >= 100 {
		return commitment
	}
	return commitment / (1 - savingsPct/100)
}

// CommitmentFromCoverage converts an on-demand-equivalent coverage level into
// the discounted amount actually paid: coverage * (1 - savingsPct/100).
//
// Mutual inverse of CoverageFromCommitment for 0 <= savingsPct < 100.
func CommitmentFromCoverage(coverage, savingsPct float64) float64 {
	return coverage * (1 - savingsPct/100)
}

// EffectiveSavingsRate returns the true realized savings rate as a
// percentage: 100 * (onDemandTotal - paidTotal) / onDemandTotal, or 0 when
// onDemandTotal is not positive.
//
// Unlike a nominal discount rate, this includes waste from unused
// commitment, so it can be negative under over-commitment.
func EffectiveSavingsRate(onDemandTotal, paidTotal float64) float64 {
	if onDemandTotal <= 0 {
		return 0
	}
	return 100 * (onDemandTotal - paidTotal) / onDemandTotal
}
