package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbcache/internal/middleware"
	"github.com/charlesng35/dbcache/internal/monitoring"
)

// NewRouter builds the Gin engine serving health probes, Prometheus metrics and
// the runtime summary of the cache.
func NewRouter(mon *monitoring.Module) (*gin.Engine, error) {
	if mon == nil {
		return nil, fmt.Errorf("monitoring module must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(mon))
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, mon.Health())
	r.GET("/metrics", gin.WrapH(mon.Handler()))

	api := r.Group("/api")
	registerMonitoringRoutes(api, mon)

	return r, nil
}
