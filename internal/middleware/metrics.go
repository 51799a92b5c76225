package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// LatencyObserver records HTTP request latency.
type LatencyObserver interface {
	ObserveAPILatency(method, path string, status int, duration time.Duration)
}

// Metrics records request latency for each HTTP request. Unmatched routes are grouped
// under an empty path to keep label cardinality bounded.
func Metrics(observer LatencyObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if observer == nil {
			return
		}
		observer.ObserveAPILatency(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
