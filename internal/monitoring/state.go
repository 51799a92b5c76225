package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	hits   atomic.Uint64
	misses atomic.Uint64

	operations  sync.Map // string -> *operationStats
	maintenance sync.Map // string -> *maintenanceStats
}

func newStatStore() *statStore {
	return &statStore{}
}

func (s *statStore) summary() Summary {
	hits, misses := s.hits.Load(), s.misses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}

	return Summary{
		GeneratedAt: time.Now(),
		Cache: CacheSummary{
			Hits:       hits,
			Misses:     misses,
			HitRatio:   ratio,
			Operations: s.cloneOperations(),
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) cloneOperations() map[string]OperationSummary {
	ops := map[string]OperationSummary{}
	s.operations.Range(func(key, value any) bool {
		stats := value.(*operationStats)
		ops[key.(string)] = OperationSummary{
			Success: stats.success.Load(),
			Failure: stats.failure.Load(),
		}
		return true
	})
	return ops
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func (s *statStore) recordLookups(hits, misses int) {
	if hits > 0 {
		s.hits.Add(uint64(hits))
	}
	if misses > 0 {
		s.misses.Add(uint64(misses))
	}
}

func (s *statStore) recordOperation(operation, result string) {
	entry, _ := s.operations.LoadOrStore(operation, &operationStats{})
	stats := entry.(*operationStats)
	if result == "success" {
		stats.success.Add(1)
		return
	}
	stats.failure.Add(1)
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	entry, _ := s.maintenance.LoadOrStore(job, &maintenanceStats{})
	return entry.(*maintenanceStats)
}

type operationStats struct {
	success atomic.Uint64
	failure atomic.Uint64
}

type maintenanceStats struct {
	lastStatus          atomic.Value // string
	lastError           atomic.Value // string
	lastRun             atomic.Int64 // unix nano
	lastDuration        atomic.Int64 // nanoseconds
	lastRemoved         atomic.Int64
	totalRemoved        atomic.Int64
	consecutiveFailures atomic.Uint64
	totalRuns           atomic.Uint64
	lastSuccessfulRun   atomic.Int64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)

	summary := MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		LastRemoved:         m.lastRemoved.Load(),
		TotalRemoved:        m.totalRemoved.Load(),
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		TotalRuns:           m.totalRuns.Load(),
	}
	if ns := m.lastRun.Load(); ns > 0 {
		summary.LastRunAt = time.Unix(0, ns)
	}
	if ns := m.lastSuccessfulRun.Load(); ns > 0 {
		summary.LastSuccessAt = time.Unix(0, ns)
	}
	return summary
}

func (m *maintenanceStats) record(result, message string, removed int64, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.lastRemoved.Store(removed)
		m.totalRemoved.Add(removed)
		m.consecutiveFailures.Store(0)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
	}
}
