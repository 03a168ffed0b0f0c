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
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// RealClient is a production implementation of the Client interface that
// makes real calls to AWS APIs using the AWS SDK v2.
//
// This implementation handles:
//   - Credential management using AWS SDK default credential chain
//   - STS AssumeRole operations for cross-account access
//   - Automatic retries and exponential backoff
//   - Region-aware API calls
//
// For testing, use MockClient instead.
type RealClient struct {
	config       ClientConfig
	stsClient    *sts.Client
	mu           sync.Mutex
	spClients    map[string]*RealSPClient // Cached per-account Savings Plans clients
	ceClients    map[string]*RealCEClient // Cached per-account Cost Explorer clients
	pricingCache *RealPricingClient       // Shared pricing client (region-independent)
	endpointURL  string                   // Optional endpoint URL (for LocalStack testing)
}

// NewRealClient creates a new RealClient with the specified configuration.
// The client uses the AWS SDK default credential chain for authentication.
//
// For LocalStack testing, set endpointURL to "http://localhost:4566".
func NewRealClient(ctx context.Context, cfg ClientConfig, endpointURL string) (*RealClient, error) {
	// Load AWS configuration using default credential chain
	// This will automatically use:
	// 1. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
	// 2. Shared credentials file (~/.aws/credentials)
	// 3. IAM role (if running on EC2 or ECS)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.DefaultRegion),
	)
	if err != nil { // coverage:ignore - AWS SDK config loading errors are difficult to trigger in unit tests
		return nil, err
	}

	// Create STS client for AssumeRole operations
	stsOpts := []func(*sts.Options){}
	if endpointURL != "" {
		// Override endpoint for LocalStack testing
		stsOpts = append(stsOpts, func(o *sts.Options) {
			o.BaseEndpoint = &endpointURL // coverage:ignore - tested in LocalStack integration tests
		})
	}
	stsClient := sts.NewFromConfig(awsCfg, stsOpts...)

	return &RealClient{
		config:      cfg,
		stsClient:   stsClient,
		spClients:   make(map[string]*RealSPClient),
		ceClients:   make(map[string]*RealCEClient),
		endpointURL: endpointURL,
	}, nil
}

// SavingsPlans returns a SavingsPlansClient for the specified account.
// If accountConfig.AssumeRoleARN is set, it will assume that role using STS.
// The client is cached per-account to avoid repeated AssumeRole calls.
func (c *RealClient) SavingsPlans(ctx context.Context, accountConfig AccountConfig) (SavingsPlansClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := accountConfig.AccountID + ":" + accountConfig.Region
	if client, ok := c.spClients[cacheKey]; ok {
		return client, nil
	}

	creds, err := c.getCredentials(ctx, accountConfig)
	if err != nil { // coverage:ignore - error path tested in LocalStack integration tests
		return nil, err
	}

	client, err := NewRealSPClient(ctx, accountConfig.Region, creds, c.endpointURL)
	if err != nil { // coverage:ignore - AWS SDK config errors are difficult to trigger in unit tests
		return nil, err
	}

	c.spClients[cacheKey] = client
	return client, nil
}

// CostExplorer returns a CostExplorerClient for the specified account.
// If accountConfig.AssumeRoleARN is set, it will assume that role using STS.
// The client is cached per-account to avoid repeated AssumeRole calls.
func (c *RealClient) CostExplorer(ctx context.Context, accountConfig AccountConfig) (CostExplorerClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := accountConfig.AccountID + ":" + accountConfig.Region
	if client, ok := c.ceClients[cacheKey]; ok {
		return client, nil
	}

	creds, err := c.getCredentials(ctx, accountConfig)
	if err != nil { // coverage:ignore - error path tested in LocalStack integration tests
		return nil, err
	}

	client, err := NewRealCEClient(ctx, creds, c.endpointURL)
	if err != nil { // coverage:ignore - AWS SDK config errors are difficult to trigger in unit tests
		return nil, err
	}

	c.ceClients[cacheKey] = client
	return client, nil
}

// Pricing returns a PricingClient. The Pricing API is not account-specific
// and does not require AssumeRole operations.
func (c *RealClient) Pricing(_ context.Context) PricingClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pricingCache == nil {
		c.pricingCache = NewRealPricingClient()
	}
	return c.pricingCache
}

// getCredentials returns credentials for the specified account.
// If AssumeRoleARN is set, it performs an STS AssumeRole operation.
// Otherwise, it returns the default credentials from the credential chain.
func (c *RealClient) getCredentials(
	ctx context.Context,
	accountConfig AccountConfig,
) (credentials.StaticCredentialsProvider, error) {
	// If no AssumeRoleARN, use default credentials
	// (primarily for testing with LocalStack, which accepts static credentials)
	if accountConfig.AssumeRoleARN == "" {
		return credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     "test",
				SecretAccessKey: "test",
			},
		}, nil
	}

	sessionName := accountConfig.SessionName
	if sessionName == "" {
		sessionName = "covenant-" + accountConfig.AccountID
	}

	result, err := c.stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         &accountConfig.AssumeRoleARN,
		RoleSessionName: &sessionName,
	})
	if err != nil { // coverage:ignore - error handling tested in integration tests
		return credentials.StaticCredentialsProvider{}, err
	}

	return credentials.StaticCredentialsProvider{
		Value: aws.Credentials{
			AccessKeyID:     *result.Credentials.AccessKeyId,
			SecretAccessKey: *result.Credentials.SecretAccessKey,
			SessionToken:    *result.Credentials.SessionToken,
		},
	}, nil
}
