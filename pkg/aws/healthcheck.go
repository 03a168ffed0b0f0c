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
	"fmt"
	"net/http"
)

// StatusReporter reports cached AWS credential health. CredentialMonitor
// implements this interface.
type StatusReporter interface {
	GetStatus() error
}

// HealthChecker provides health check functionality for AWS account access.
// It implements the controller-runtime healthz.Checker signature and is used
// as a readiness probe so the advisor doesn't mark itself ready while its
// AWS credentials are broken.
//
// Checks read the credential monitor's cached status rather than calling AWS,
// so probes stay fast and add no API traffic.
type HealthChecker struct {
	monitor StatusReporter
}

// NewHealthChecker creates a new health checker backed by the given
// credential monitor.
func NewHealthChecker(monitor StatusReporter) *HealthChecker {
	return &HealthChecker{
		monitor: monitor,
	}
}

// Name returns the name of this health checker for logging purposes.
func (h *HealthChecker) Name() string {
	return "aws-account-access"
}

// Check reports whether AWS accounts are accessible, based on the monitor's
// cached state. This method matches healthz.Checker.
//
// This check is designed to be used as a readiness probe, not a liveness
// probe. Temporary AWS API failures should not cause the pod to be killed,
// but they should prevent it from receiving traffic until access is restored.
func (h *HealthChecker) Check(_ *http.Request) error {
	if err := h.monitor.GetStatus(); err != nil {
		return fmt.Errorf("aws account access: %w", err)
	}
	return nil
}
