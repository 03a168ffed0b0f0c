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
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// The Pricing API is only served out of a few regions; us-east-1 works for
// all price lists.
const pricingRegion = "us-east-1"

// RealPricingClient is a production implementation of PricingClient that makes
// real API calls to AWS Pricing using the AWS SDK v2.
//
// Note: the Pricing API does not require account-specific credentials as
// pricing information is publicly available. Results are cached for the
// lifetime of the client since on-demand list prices change rarely.
type RealPricingClient struct {
	mu     sync.Mutex
	client *pricing.Client
	cache  map[string]*OnDemandRate // "region:instanceType" -> rate
}

// NewRealPricingClient creates a new Pricing client. SDK initialization is
// deferred to the first lookup so construction cannot fail.
func NewRealPricingClient() *RealPricingClient {
	return &RealPricingClient{
		cache: make(map[string]*OnDemandRate),
	}
}

// GetOnDemandRate returns the Linux on-demand price for an instance type in
// a region, consulting the cache first.
func (c *RealPricingClient) GetOnDemandRate(
	ctx context.Context,
	region string,
	instanceType string,
) (*OnDemandRate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cacheKey := region + ":" + instanceType
	if rate, ok := c.cache[cacheKey]; ok {
		return rate, nil
	}

	if c.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(pricingRegion),
		)
		if err != nil { // coverage:ignore - AWS SDK config loading errors are difficult to trigger in unit tests
			return nil, err
		}
		c.client = pricing.NewFromConfig(cfg)
	}

	out, err := c.client.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		MaxResults:  aws.Int32(1),
		Filters: []pricingtypes.Filter{
			termMatch("regionCode", region),
			termMatch("instanceType", instanceType),
			termMatch("operatingSystem", "Linux"),
			termMatch("tenancy", "Shared"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting products for %s in %s: %w", instanceType, region, err)
	}
	if len(out.PriceList) == 0 {
		return nil, fmt.Errorf("no on-demand price found for %s in %s", instanceType, region)
	}

	price, err := parseOnDemandPrice(out.PriceList[0])
	if err != nil {
		return nil, fmt.Errorf("parsing price list for %s in %s: %w", instanceType, region, err)
	}

	rate := &OnDemandRate{
		Region:       region,
		InstanceType: instanceType,
		PricePerHour: price,
	}
	c.cache[cacheKey] = rate
	return rate, nil
}

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Type:  pricingtypes.FilterTypeTermMatch,
		Field: aws.String(field),
		Value: aws.String(value),
	}
}

// parseOnDemandPrice digs the USD hourly price out of a price list document.
// The document nests the price under terms.OnDemand.<sku>.<offer>.
// priceDimensions.<dimension>.pricePerUnit.USD.
func parseOnDemandPrice(doc string) (float64, error) {
	var priceList struct {
		Terms struct {
			OnDemand map[string]struct {
				PriceDimensions map[string]struct {
					PricePerUnit struct {
						USD string `json:"USD"`
					} `json:"pricePerUnit"`
				} `json:"priceDimensions"`
			} `json:"OnDemand"`
		} `json:"terms"`
	}
	if err := json.Unmarshal([]byte(doc), &priceList); err != nil {
		return 0, err
	}

	for _, offer := range priceList.Terms.OnDemand {
		for _, dim := range offer.PriceDimensions {
			price, err := strconv.ParseFloat(dim.PricePerUnit.USD, 64)
			if err != nil {
				return 0, fmt.Errorf("parsing USD price %q: %w", dim.PricePerUnit.USD, err)
			}
			return price, nil
		}
	}
	return 0, fmt.Errorf("price document has no on-demand dimensions")
}
