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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// TestEngineParity runs the cross-implementation parity suite. The vectors
// in parity_test.go are shared with the other implementations of this
// algorithm; every port is checked against the same fixed inputs and
// expected outputs rather than against source-code diffing.
func TestEngineParity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "engine parity suite")
}
