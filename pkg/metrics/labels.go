/*
Copyright 2025 Covenant Contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

// Metric label name constants.
const (
	// Account labels
	LabelAccountID   = "account_id"
	LabelAccountName = "account_name"

	// Data freshness labels
	LabelDataType = "data_type"

	// Coverage zone label (one value per engine.Zone)
	LabelZone = "zone"

	// Usage distribution label ("p50", "p75", "p90")
	LabelPercentile = "percentile"
)

// Data type values for freshness tracking.
const (
	DataTypeUsage        = "hourly_usage"
	DataTypeSavingsPlans = "savings_plans"
)
