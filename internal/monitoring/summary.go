package monitoring

import "time"

// Summary surfaces aggregated cache and maintenance statistics.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Cache       CacheSummary       `json:"cache"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

// CacheSummary counts lookups and operation outcomes since start-up.
type CacheSummary struct {
	Hits       uint64                      `json:"hits"`
	Misses     uint64                      `json:"misses"`
	HitRatio   float64                     `json:"hit_ratio"`
	Operations map[string]OperationSummary `json:"operations"`
}

// OperationSummary counts outcomes of one batch operation.
type OperationSummary struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	LastRemoved         int64         `json:"last_removed"`
	TotalRemoved        int64         `json:"total_removed"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}
