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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid minimal config",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Test Account"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"`,
			wantErr: false,
		},
		{
			name: "valid config with multiple accounts",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Production"
    assumeRoleArn: "arn:aws:iam::123456789012:role/covenant-advisor"
  - accountId: "987654321098"
    name: "Staging"
    assumeRoleArn: "arn:aws:iam::987654321098:role/covenant-advisor"
defaultRegion: us-east-1
logLevel: debug`,
			wantErr: false,
		},
		{
			name: "valid config with advisor settings",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"
reconciliation:
  usage: "30m"
  plans: "2h"
advisor:
  lookbackDays: 14
  savingsPercentage: 28`,
			wantErr: false,
		},
		{
			name:    "empty config file",
			yaml:    ``,
			wantErr: true,
			errMsg:  "at least one AWS account must be configured",
		},
		{
			name: "duplicate account IDs",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "One"
    assumeRoleArn: "arn:aws:iam::123456789012:role/a"
  - accountId: "123456789012"
    name: "Two"
    assumeRoleArn: "arn:aws:iam::123456789012:role/b"`,
			wantErr: true,
			errMsg:  "duplicate account ID",
		},
		{
			name: "invalid account ID",
			yaml: `awsAccounts:
  - accountId: "12345"
    name: "Short"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"`,
			wantErr: true,
			errMsg:  "must be 12 digits",
		},
		{
			name: "ARN account mismatch",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Mismatch"
    assumeRoleArn: "arn:aws:iam::999999999999:role/test-role"`,
			wantErr: true,
			errMsg:  "does not match configured account ID",
		},
		{
			name: "missing account name",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "  "
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"`,
			wantErr: true,
			errMsg:  "account name is required",
		},
		{
			name: "invalid log level",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"
logLevel: verbose`,
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name: "invalid usage interval",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"
reconciliation:
  usage: "often"`,
			wantErr: true,
			errMsg:  "invalid usage reconciliation interval",
		},
		{
			name: "savings percentage out of range",
			yaml: `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"
advisor:
  savingsPercentage: 100`,
			wantErr: true,
			errMsg:  "savings percentage must be in [0,100)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if cfg == nil {
				t.Fatal("Load() returned nil config without error")
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DefaultRegion != "us-west-2" {
		t.Errorf("DefaultRegion = %q, want us-west-2", cfg.DefaultRegion)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if got := cfg.GetUsageInterval(); got != time.Hour {
		t.Errorf("GetUsageInterval() = %v, want 1h", got)
	}
	if got := cfg.GetPlansInterval(); got != time.Hour {
		t.Errorf("GetPlansInterval() = %v, want 1h", got)
	}
	if got := cfg.GetLookbackDays(); got != 7 {
		t.Errorf("GetLookbackDays() = %d, want 7", got)
	}
	if got := cfg.GetSavingsPercentage(); got != 28 {
		t.Errorf("GetSavingsPercentage() = %v, want 28", got)
	}
	if got := cfg.GetAccountValidationInterval(); got != 10*time.Minute {
		t.Errorf("GetAccountValidationInterval() = %v, want 10m", got)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COVENANT_DEFAULT_REGION", "eu-central-1")
	t.Setenv("COVENANT_RECONCILIATION_USAGE", "15m")

	path := writeTempConfig(t, `awsAccounts:
  - accountId: "123456789012"
    name: "Test"
    assumeRoleArn: "arn:aws:iam::123456789012:role/test-role"
defaultRegion: us-west-2`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.DefaultRegion != "eu-central-1" {
		t.Errorf("DefaultRegion = %q, want env override eu-central-1", cfg.DefaultRegion)
	}
	if got := cfg.GetUsageInterval(); got != 15*time.Minute {
		t.Errorf("GetUsageInterval() = %v, want 15m", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
