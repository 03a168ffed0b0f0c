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

package aws

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStatusReporter struct {
	err error
}

func (f *fakeStatusReporter) GetStatus() error { return f.err }

func TestHealthCheckerHealthy(t *testing.T) {
	checker := NewHealthChecker(&fakeStatusReporter{})

	req := httptest.NewRequest("GET", "/readyz", nil)
	assert.NoError(t, checker.Check(req))
	assert.Equal(t, "aws-account-access", checker.Name())
}

func TestHealthCheckerUnhealthy(t *testing.T) {
	checker := NewHealthChecker(&fakeStatusReporter{
		err: errors.New("all 2 AWS accounts are unhealthy"),
	})

	req := httptest.NewRequest("GET", "/readyz", nil)
	err := checker.Check(req)
	assert.ErrorContains(t, err, "aws account access")
	assert.ErrorContains(t, err, "unhealthy")
}
