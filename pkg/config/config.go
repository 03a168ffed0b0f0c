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

// Package config provides configuration management for the Covenant advisor.
//
// The advisor requires configuration for:
//   - AWS accounts whose billing history feeds the usage series
//   - IAM roles to assume in each account
//   - Reconciliation intervals and advisor tuning parameters
//
// Configuration is loaded from YAML files with environment variable
// overrides. Uses Viper for robust configuration management.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete advisor configuration.
type Config struct {
	// AWSAccounts is the list of AWS accounts whose hourly cost history is
	// merged into the usage series. Each account must have an AssumeRole ARN.
	AWSAccounts []AWSAccount `yaml:"awsAccounts"`

	// DefaultRegion is the default AWS region for API calls.
	DefaultRegion string `yaml:"defaultRegion,omitempty"`

	// LogLevel controls the verbosity of logs.
	// Valid values: debug, info, warn, error
	// Default: info
	LogLevel string `yaml:"logLevel,omitempty"`

	// MetricsBindAddress is the address the metrics endpoint binds to.
	// Default: :8080
	MetricsBindAddress string `yaml:"metricsBindAddress,omitempty"`

	// HealthProbeBindAddress is the address the probe endpoint binds to.
	// Default: :8081
	HealthProbeBindAddress string `yaml:"healthProbeBindAddress,omitempty"`

	// AccountValidationInterval is how often to validate AWS account access.
	// Format: Go duration string. Default: 10m
	AccountValidationInterval string `yaml:"accountValidationInterval,omitempty"`

	// Reconciliation contains settings for data collection loops.
	Reconciliation ReconciliationConfig `yaml:"reconciliation,omitempty"`

	// Advisor contains tuning parameters for the recommendation engine input.
	Advisor AdvisorConfig `yaml:"advisor,omitempty"`

	// TestData contains mock data for E2E testing. When present, the
	// reconcilers use this data instead of making AWS API calls.
	// IMPORTANT: only for E2E tests, never production.
	TestData *TestData `yaml:"testData,omitempty"`
}

// ReconciliationConfig contains settings for reconciliation intervals.
type ReconciliationConfig struct {
	// Usage is how often to refresh the hourly cost history from
	// Cost Explorer. Default: 1h. Hourly-granularity billing data lags
	// several hours behind real time, so refreshing faster buys nothing.
	Usage string `yaml:"usage,omitempty"`

	// Plans is how often to refresh the active Savings Plans inventory.
	// Default: 1h. Plans change only on purchase or expiry.
	Plans string `yaml:"plans,omitempty"`

	// Advisor recommendation runs are event-driven: a debouncer triggers a
	// recalculation shortly after either cache updates.
}

// AdvisorConfig contains tuning parameters for the advisor.
type AdvisorConfig struct {
	// LookbackDays is how many days of hourly usage history to analyze.
	// Default: 7 (one week, 168 hourly samples).
	LookbackDays int `yaml:"lookbackDays,omitempty"`

	// SavingsPercentage is the nominal Savings Plan discount to model, in
	// percent. When zero, the discount observed on active plans is used,
	// falling back to this default chain: active plans, then 28.
	SavingsPercentage float64 `yaml:"savingsPercentage,omitempty"`

	// OnDemandRate is an optional unit price used only for display-oriented
	// usage-unit quantities in the cost report. Zero disables it.
	OnDemandRate float64 `yaml:"onDemandRate,omitempty"`

	// ReferenceInstanceType, when set and OnDemandRate is zero, resolves
	// the unit price from the AWS Pricing API for this instance type in
	// the default region (e.g. "m5.large").
	ReferenceInstanceType string `yaml:"referenceInstanceType,omitempty"`
}

// TestData contains mock data for E2E testing.
type TestData struct {
	// SavingsPlans contains mock Savings Plans, keyed by account ID.
	SavingsPlans map[string][]TestSavingsPlan `yaml:"savingsPlans,omitempty"`

	// HourlyUsage contains a mock hourly cost series, keyed by account ID.
	HourlyUsage map[string][]float64 `yaml:"hourlyUsage,omitempty"`
}

// TestSavingsPlan represents a mock Savings Plan for E2E testing. Fields
// match the aws.SavingsPlan structure so they can be converted directly.
type TestSavingsPlan struct {
	SavingsPlanARN  string  `yaml:"savingsPlanArn"`
	SavingsPlanType string  `yaml:"savingsPlanType"` // "EC2Instance" or "Compute"
	State           string  `yaml:"state"`
	Commitment      float64 `yaml:"commitment"`      // Hourly commitment ($/hour)
	DiscountPercent float64 `yaml:"discountPercent"` // Purchase-time discount (0-100)
	Start           string  `yaml:"start"`           // ISO 8601
	End             string  `yaml:"end"`             // ISO 8601
}

// AWSAccount represents a single AWS account to analyze.
type AWSAccount struct {
	// AccountID is the 12-digit AWS account ID.
	AccountID string `yaml:"accountId"`

	// Name is a human-readable name used in logs and metrics labels.
	Name string `yaml:"name"`

	// AssumeRoleARN is the IAM role ARN to assume for this account.
	// Format: arn:aws:iam::ACCOUNT_ID:role/ROLE_NAME
	AssumeRoleARN string `yaml:"assumeRoleArn"`

	// Region is the AWS region for this account (optional).
	// If not set, uses Config.DefaultRegion.
	Region string `yaml:"region,omitempty"`
}

// Load loads configuration from a YAML file and validates it.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COVENANT_* prefix)
//  2. Configuration file values
//  3. Default values
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("defaultRegion", "us-west-2")
	v.SetDefault("logLevel", "info")
	v.SetDefault("metricsBindAddress", ":8080")
	v.SetDefault("healthProbeBindAddress", ":8081")
	v.SetDefault("accountValidationInterval", "10m")
	v.SetDefault("reconciliation.usage", "1h")
	v.SetDefault("reconciliation.plans", "1h")
	v.SetDefault("advisor.lookbackDays", 7)

	// Manually bind each config key to its environment variable; Viper's
	// automatic mapping doesn't handle camelCase to SCREAMING_SNAKE_CASE.
	v.SetEnvPrefix("COVENANT")
	_ = v.BindEnv("defaultRegion", "COVENANT_DEFAULT_REGION")
	_ = v.BindEnv("logLevel", "COVENANT_LOG_LEVEL")
	_ = v.BindEnv("metricsBindAddress", "COVENANT_METRICS_BIND_ADDRESS")
	_ = v.BindEnv("healthProbeBindAddress", "COVENANT_HEALTH_PROBE_BIND_ADDRESS")
	_ = v.BindEnv("accountValidationInterval", "COVENANT_ACCOUNT_VALIDATION_INTERVAL")
	_ = v.BindEnv("reconciliation.usage", "COVENANT_RECONCILIATION_USAGE")
	_ = v.BindEnv("reconciliation.plans", "COVENANT_RECONCILIATION_PLANS")
	_ = v.BindEnv("advisor.lookbackDays", "COVENANT_ADVISOR_LOOKBACK_DAYS")
	_ = v.BindEnv("advisor.savingsPercentage", "COVENANT_ADVISOR_SAVINGS_PERCENTAGE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.AWSAccounts) == 0 {
		return fmt.Errorf("at least one AWS account must be configured")
	}

	accountIDs := make(map[string]bool)
	for i, account := range c.AWSAccounts {
		if accountIDs[account.AccountID] {
			return fmt.Errorf("duplicate account ID: %s", account.AccountID)
		}
		accountIDs[account.AccountID] = true

		if err := account.Validate(); err != nil {
			return fmt.Errorf("invalid account at index %d: %w", i, err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.AccountValidationInterval != "" {
		if _, err := time.ParseDuration(c.AccountValidationInterval); err != nil {
			return fmt.Errorf("invalid account validation interval %q: %w", c.AccountValidationInterval, err)
		}
	}

	if c.Reconciliation.Usage != "" {
		if _, err := time.ParseDuration(c.Reconciliation.Usage); err != nil {
			return fmt.Errorf("invalid usage reconciliation interval %q: %w", c.Reconciliation.Usage, err)
		}
	}
	if c.Reconciliation.Plans != "" {
		if _, err := time.ParseDuration(c.Reconciliation.Plans); err != nil {
			return fmt.Errorf("invalid plans reconciliation interval %q: %w", c.Reconciliation.Plans, err)
		}
	}

	if c.Advisor.LookbackDays < 0 {
		return fmt.Errorf("advisor lookback days must not be negative, got %d", c.Advisor.LookbackDays)
	}
	if s := c.Advisor.SavingsPercentage; s != 0 && (s < 0 || s >= 100) {
		return fmt.Errorf("advisor savings percentage must be in [0,100), got %v", s)
	}

	return nil
}

// Validate checks that the AWS account configuration is valid.
func (a *AWSAccount) Validate() error {
	if !isValidAccountID(a.AccountID) {
		return fmt.Errorf("invalid account ID %q: must be 12 digits", a.AccountID)
	}

	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("account name is required")
	}

	if !isValidIAMRoleARN(a.AssumeRoleARN) {
		return fmt.Errorf(
			"invalid AssumeRole ARN %q: must be in format arn:aws:iam::ACCOUNT_ID:role/ROLE_NAME",
			a.AssumeRoleARN,
		)
	}

	// The ARN's account ID must match the configured account ID.
	arnAccountID := extractAccountIDFromARN(a.AssumeRoleARN)
	if arnAccountID != a.AccountID {
		return fmt.Errorf("AssumeRole ARN account ID %q does not match configured account ID %q", arnAccountID, a.AccountID)
	}

	return nil
}

// isValidAccountID checks if a string is a valid 12-digit AWS account ID.
func isValidAccountID(accountID string) bool {
	matched, _ := regexp.MatchString(`^\d{12}$`, accountID)
	return matched
}

// isValidIAMRoleARN checks if a string is a valid IAM role ARN.
// Valid format: arn:aws:iam::123456789012:role/RoleName
// Also accepts arn:aws-us-gov:iam::... and arn:aws-cn:iam::...
func isValidIAMRoleARN(arn string) bool {
	matched, _ := regexp.MatchString(`^arn:(aws|aws-us-gov|aws-cn):iam::\d{12}:role/[a-zA-Z0-9+=,.@\-_/]+$`, arn)
	return matched
}

// extractAccountIDFromARN extracts the account ID from an IAM role ARN.
// Returns empty string if the ARN is invalid.
func extractAccountIDFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) >= 5 {
		return parts[4]
	}
	return ""
}

// GetAccountValidationInterval returns the parsed account validation
// interval, defaulting to 10 minutes.
func (c *Config) GetAccountValidationInterval() time.Duration {
	return parseDurationOr(c.AccountValidationInterval, 10*time.Minute)
}

// GetUsageInterval returns the parsed usage reconciliation interval,
// defaulting to 1 hour.
func (c *Config) GetUsageInterval() time.Duration {
	return parseDurationOr(c.Reconciliation.Usage, time.Hour)
}

// GetPlansInterval returns the parsed plans reconciliation interval,
// defaulting to 1 hour.
func (c *Config) GetPlansInterval() time.Duration {
	return parseDurationOr(c.Reconciliation.Plans, time.Hour)
}

// GetLookbackDays returns the configured lookback window, defaulting to 7.
func (c *Config) GetLookbackDays() int {
	if c.Advisor.LookbackDays <= 0 {
		return 7
	}
	return c.Advisor.LookbackDays
}

// GetSavingsPercentage returns the configured default discount, falling back
// to 28 (a typical 1-year no-upfront Compute Savings Plan rate). Used only
// when active plans carry no observed discount of their own.
func (c *Config) GetSavingsPercentage() float64 {
	if c.Advisor.SavingsPercentage <= 0 {
		return 28
	}
	return c.Advisor.SavingsPercentage
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		// Validate() rejects unparseable intervals before we get here.
		return fallback
	}
	return d
}
