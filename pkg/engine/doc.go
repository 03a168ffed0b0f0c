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

// Package engine implements the Savings Plan economics model: pure functions
// that relate commitment, coverage, and discount rate, compute per-hour cost
// breakdowns for an hourly usage history, find the savings-maximizing
// coverage level, generate the coverage-to-savings curve with its risk
// zones, and pick a conservative "knee point" recommendation.
//
// The engine is deliberately stateless and performs no I/O: every function
// takes its inputs explicitly and returns new values. This matters because
// the same algorithm runs in more than one place (an interactive client and
// this server-side advisor), and the two implementations are held to a
// numeric parity contract: identical inputs must produce matching outputs
// within 1% relative tolerance. Keep any change here bit-for-bit faithful
// to the documented formulas, and verify against the fixed test vectors in
// parity_test.go before shipping.
//
// Error handling is defensive rather than exception-raising: empty series
// produce all-zero aggregates, non-positive denominators yield 0 instead of
// NaN or Inf, and out-of-range inputs are passed through deterministically
// rather than rejected. Callers are trusted; inventing validation here
// could make the parity-bound implementations disagree.
package engine
