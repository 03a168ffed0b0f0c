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
	"fmt"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
)

// Cost Explorer is a global service served only out of us-east-1.
const costExplorerRegion = "us-east-1"

// ceTimeFormat is the timestamp format Cost Explorer uses for hourly
// granularity time periods.
const ceTimeFormat = "2006-01-02T15:04:05Z"

// ceUsageMetric is the cost metric the advisor analyzes. Unblended cost
// reflects what the account actually paid each hour.
const ceUsageMetric = "UnblendedCost"

// RealCEClient is a production implementation of CostExplorerClient that
// makes real API calls to AWS Cost Explorer using the AWS SDK v2.
type RealCEClient struct {
	client *costexplorer.Client
}

// NewRealCEClient creates a new Cost Explorer client with the specified credentials.
func NewRealCEClient(
	ctx context.Context,
	creds credentials.StaticCredentialsProvider,
	endpointURL string,
) (*RealCEClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(costExplorerRegion),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil { // coverage:ignore - AWS SDK config loading errors are difficult to trigger in unit tests
		return nil, err
	}

	ceOpts := []func(*costexplorer.Options){}
	if endpointURL != "" {
		// Override endpoint for LocalStack testing
		ceOpts = append(ceOpts, func(o *costexplorer.Options) {
			o.BaseEndpoint = &endpointURL // coverage:ignore - tested in LocalStack integration tests
		})
	}

	return &RealCEClient{
		client: costexplorer.NewFromConfig(cfg, ceOpts...),
	}, nil
}

// GetHourlyUsage returns hourly unblended cost between start (inclusive) and
// end (exclusive), following pagination until the API is exhausted. Both
// bounds are truncated to the hour in UTC before the query.
func (c *RealCEClient) GetHourlyUsage(ctx context.Context, start, end time.Time) ([]UsagePoint, error) {
	startStr := start.UTC().Truncate(time.Hour).Format(ceTimeFormat)
	endStr := end.UTC().Truncate(time.Hour).Format(ceTimeFormat)

	input := &costexplorer.GetCostAndUsageInput{
		Granularity: cetypes.GranularityHourly,
		TimePeriod: &cetypes.DateInterval{
			Start: &startStr,
			End:   &endStr,
		},
		Metrics: []string{ceUsageMetric},
	}

	var points []UsagePoint
	for {
		out, err := c.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("getting cost and usage: %w", err)
		}

		for _, result := range out.ResultsByTime {
			point, err := convertUsagePoint(result)
			if err != nil {
				return nil, err
			}
			points = append(points, point)
		}

		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	return points, nil
}

// convertUsagePoint extracts the hour start and unblended cost amount from a
// Cost Explorer result bucket.
func convertUsagePoint(result cetypes.ResultByTime) (UsagePoint, error) {
	var point UsagePoint

	if result.TimePeriod == nil || result.TimePeriod.Start == nil {
		return point, fmt.Errorf("cost explorer result missing time period")
	}
	start, err := time.Parse(ceTimeFormat, *result.TimePeriod.Start)
	if err != nil {
		return point, fmt.Errorf("parsing result start %q: %w", *result.TimePeriod.Start, err)
	}
	point.Start = start

	metric, ok := result.Total[ceUsageMetric]
	if !ok || metric.Amount == nil {
		// Hours with no recorded usage come back without the metric.
		return point, nil
	}
	amount, err := strconv.ParseFloat(*metric.Amount, 64)
	if err != nil {
		return point, fmt.Errorf("parsing amount %q for hour %s: %w",
			*metric.Amount, point.Start.Format(ceTimeFormat), err)
	}
	point.Amount = amount

	return point, nil
}
