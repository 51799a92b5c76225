package monitoring

import (
	"strconv"
	"strings"
	"time"
)

// RecordCacheOperation counts a batch operation and observes its latency.
func (m *Module) RecordCacheOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	operation = labelOr(operation, "unknown")
	result = labelOr(result, "unknown")

	m.metrics.cacheOperations.WithLabelValues(operation, result).Inc()
	observeDuration(m.metrics.cacheLatency.WithLabelValues(operation), duration)
	m.stats.recordOperation(operation, result)
}

// RecordCacheLookups adds the hit and miss counts of one getMany call.
func (m *Module) RecordCacheLookups(hits, misses int) {
	if m == nil {
		return
	}
	if hits > 0 {
		m.metrics.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		m.metrics.cacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
	m.stats.recordLookups(hits, misses)
}

// RecordMaintenanceRun records the completion of a maintenance job and the rows it removed.
func (m *Module) RecordMaintenanceRun(job string, removed int64, duration time.Duration, err error) {
	if m == nil {
		return
	}
	job = labelOr(job, "unknown")
	result, message := "success", ""
	if err != nil {
		result, message = "failure", strings.TrimSpace(err.Error())
	}

	m.metrics.maintenanceRuns.WithLabelValues(job, result).Inc()
	observeDuration(m.metrics.maintenanceDuration.WithLabelValues(job), duration)
	if err == nil {
		m.metrics.maintenanceLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
		if removed > 0 {
			m.metrics.prunedEntries.WithLabelValues(job).Add(float64(removed))
		}
	}
	m.stats.maintenanceEntry(job).record(result, message, removed, duration)
}

// ObserveAPILatency records the latency of an HTTP request.
func (m *Module) ObserveAPILatency(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	observeDuration(
		m.metrics.apiLatency.WithLabelValues(strings.ToUpper(method), labelOr(path, "unmatched"), strconv.Itoa(status)),
		duration,
	)
}

func labelOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
