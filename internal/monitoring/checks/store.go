package checks

import (
	"context"
	"time"

	"github.com/charlesng35/dbcache/internal/cache"
	"github.com/charlesng35/dbcache/internal/monitoring"
)

// ProbeKey is the unprefixed key read by the store probe. Nothing writes it.
const ProbeKey = "__dbcache_ready__"

// Store returns a readiness probe that issues a keyed read against the row store the
// cache runs on. The read goes through the same path as GetMany, so it covers the
// database and redis stores alike. backend names the store in the probe details.
func Store(backend string, rows cache.RowStore, prefix string, timeout time.Duration) monitoring.Check {
	check := monitoring.NewCheck("store", func(ctx context.Context) monitoring.ProbeResult {
		if rows == nil {
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDown,
				Details: backend + " store not configured",
			}
		}

		start := time.Now()
		if _, err := rows.SelectWhereKeyIn(ctx, []string{prefix + ProbeKey}); err != nil {
			return monitoring.ResultFromError("store", err, time.Since(start))
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  backend,
			Duration: time.Since(start),
		}
	})
	check.Timeout = timeout
	return check
}
