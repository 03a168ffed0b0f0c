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
	"github.com/aws/aws-sdk-go-v2/service/savingsplans"
	sptypes "github.com/aws/aws-sdk-go-v2/service/savingsplans/types"
)

// RealSPClient is a production implementation of SavingsPlansClient that makes
// real API calls to AWS Savings Plans using the AWS SDK v2.
type RealSPClient struct {
	client *savingsplans.Client
	region string
}

// NewRealSPClient creates a new Savings Plans client with the specified credentials.
func NewRealSPClient(
	ctx context.Context,
	region string,
	creds credentials.StaticCredentialsProvider,
	endpointURL string,
) (*RealSPClient, error) {
	// Load AWS configuration with the provided credentials
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil { // coverage:ignore - AWS SDK config loading errors are difficult to trigger in unit tests
		return nil, err
	}

	spOpts := []func(*savingsplans.Options){}
	if endpointURL != "" {
		// Override endpoint for LocalStack testing
		spOpts = append(spOpts, func(o *savingsplans.Options) {
			o.BaseEndpoint = &endpointURL // coverage:ignore - tested in LocalStack integration tests
		})
	}
	client := savingsplans.NewFromConfig(cfg, spOpts...)

	return &RealSPClient{
		client: client,
		region: region,
	}, nil
}

// DescribeSavingsPlans returns all Savings Plans for the account, following
// pagination until the API is exhausted.
func (c *RealSPClient) DescribeSavingsPlans(ctx context.Context) ([]SavingsPlan, error) {
	var plans []SavingsPlan

	input := &savingsplans.DescribeSavingsPlansInput{}
	for {
		out, err := c.client.DescribeSavingsPlans(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describing savings plans: %w", err)
		}

		for _, sp := range out.SavingsPlans {
			plan, err := convertSavingsPlan(sp)
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		}

		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		input.NextToken = out.NextToken
	}

	return plans, nil
}

// GetSavingsPlanByARN returns a specific Savings Plan by ARN.
// Returns nil if the Savings Plan is not found.
func (c *RealSPClient) GetSavingsPlanByARN(ctx context.Context, arn string) (*SavingsPlan, error) {
	out, err := c.client.DescribeSavingsPlans(ctx, &savingsplans.DescribeSavingsPlansInput{
		SavingsPlanArns: []string{arn},
	})
	if err != nil {
		return nil, fmt.Errorf("describing savings plan %s: %w", arn, err)
	}
	if len(out.SavingsPlans) == 0 {
		return nil, nil
	}

	plan, err := convertSavingsPlan(out.SavingsPlans[0])
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// convertSavingsPlan maps an SDK Savings Plan into the internal type.
// Commitment arrives as a decimal string; Start/End as RFC3339 timestamps.
func convertSavingsPlan(sp sptypes.SavingsPlan) (SavingsPlan, error) {
	plan := SavingsPlan{
		SavingsPlanType: string(sp.SavingsPlanType),
		State:           string(sp.State),
	}
	if sp.SavingsPlanArn != nil {
		plan.SavingsPlanARN = *sp.SavingsPlanArn
	}
	if sp.SavingsPlanId != nil {
		plan.SavingsPlanID = *sp.SavingsPlanId
	}
	if sp.Commitment != nil {
		commitment, err := strconv.ParseFloat(*sp.Commitment, 64)
		if err != nil {
			return SavingsPlan{}, fmt.Errorf("parsing commitment %q for %s: %w",
				*sp.Commitment, plan.SavingsPlanARN, err)
		}
		plan.Commitment = commitment
	}
	if sp.Start != nil {
		start, err := time.Parse(time.RFC3339, *sp.Start)
		if err != nil {
			return SavingsPlan{}, fmt.Errorf("parsing start time %q for %s: %w",
				*sp.Start, plan.SavingsPlanARN, err)
		}
		plan.Start = start
	}
	if sp.End != nil {
		end, err := time.Parse(time.RFC3339, *sp.End)
		if err != nil {
			return SavingsPlan{}, fmt.Errorf("parsing end time %q for %s: %w",
				*sp.End, plan.SavingsPlanARN, err)
		}
		plan.End = end
	}
	return plan, nil
}
