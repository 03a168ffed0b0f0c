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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextdoor/covenant/pkg/config"
)

// fakeValidator returns configurable per-account results and counts calls.
type fakeValidator struct {
	mu     sync.Mutex
	errors map[string]error // accountID -> error to return
	calls  int
}

func (f *fakeValidator) ValidateAccountAccess(_ context.Context, accountConfig AccountConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.errors[accountConfig.AccountID]
}

func testAccounts() []config.AWSAccount {
	return []config.AWSAccount{
		{AccountID: "111111111111", Name: "prod", Region: "us-west-2"},
		{AccountID: "222222222222", Name: "staging", Region: "us-west-2"},
	}
}

func TestCredentialMonitorAllHealthy(t *testing.T) {
	validator := &fakeValidator{errors: map[string]error{}}
	monitor := NewCredentialMonitor(validator, testAccounts(), time.Minute)

	monitor.CheckAllAccounts()

	require.NoError(t, monitor.GetStatus())
	assert.Equal(t, 2, validator.calls)

	status := monitor.GetAccountStatus("111111111111")
	require.NotNil(t, status)
	assert.True(t, status.Healthy)
	assert.Equal(t, "prod", status.AccountName)
}

func TestCredentialMonitorDegradedStillHealthy(t *testing.T) {
	// One bad account out of two is degraded operation, not failure.
	validator := &fakeValidator{errors: map[string]error{
		"222222222222": errors.New("AssumeRole denied"),
	}}
	monitor := NewCredentialMonitor(validator, testAccounts(), time.Minute)

	monitor.CheckAllAccounts()

	assert.NoError(t, monitor.GetStatus())

	status := monitor.GetAccountStatus("222222222222")
	require.NotNil(t, status)
	assert.False(t, status.Healthy)
	assert.ErrorContains(t, status.LastError, "AssumeRole denied")
}

func TestCredentialMonitorAllUnhealthy(t *testing.T) {
	validator := &fakeValidator{errors: map[string]error{
		"111111111111": errors.New("expired token"),
		"222222222222": errors.New("expired token"),
	}}
	monitor := NewCredentialMonitor(validator, testAccounts(), time.Minute)

	monitor.CheckAllAccounts()

	err := monitor.GetStatus()
	require.Error(t, err)
	assert.ErrorContains(t, err, "all 2 AWS accounts are unhealthy")
}

func TestCredentialMonitorUncheckedAccounts(t *testing.T) {
	validator := &fakeValidator{errors: map[string]error{}}
	monitor := NewCredentialMonitor(validator, testAccounts(), time.Minute)

	// Before any check runs the monitor must not fail health probes.
	assert.NoError(t, monitor.GetStatus())
	assert.Nil(t, monitor.GetAccountStatus("111111111111"))
}

func TestCredentialMonitorNoAccounts(t *testing.T) {
	monitor := NewCredentialMonitor(&fakeValidator{}, nil, 0)
	assert.NoError(t, monitor.GetStatus())
}
