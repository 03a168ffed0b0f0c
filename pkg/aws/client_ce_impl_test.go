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
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertUsagePoint(t *testing.T) {
	point, err := convertUsagePoint(cetypes.ResultByTime{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String("2025-06-01T03:00:00Z"),
			End:   aws.String("2025-06-01T04:00:00Z"),
		},
		Total: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String("12.3456789"), Unit: aws.String("USD")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC), point.Start)
	assert.Equal(t, 12.3456789, point.Amount)
}

func TestConvertUsagePointEmptyHour(t *testing.T) {
	// Hours with no recorded usage come back without the metric; they count
	// as zero-cost hours rather than errors.
	point, err := convertUsagePoint(cetypes.ResultByTime{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String("2025-06-01T03:00:00Z"),
		},
		Total: map[string]cetypes.MetricValue{},
	})
	require.NoError(t, err)
	assert.Zero(t, point.Amount)
}

func TestConvertUsagePointMissingPeriod(t *testing.T) {
	_, err := convertUsagePoint(cetypes.ResultByTime{})
	assert.ErrorContains(t, err, "missing time period")
}

func TestConvertUsagePointBadAmount(t *testing.T) {
	_, err := convertUsagePoint(cetypes.ResultByTime{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String("2025-06-01T03:00:00Z"),
		},
		Total: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String("NaN-ish")},
		},
	})
	assert.ErrorContains(t, err, "parsing amount")
}
