package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dbcache/internal/monitoring"
	"github.com/charlesng35/dbcache/pkg/response"
)

func registerMonitoringRoutes(api *gin.RouterGroup, mon *monitoring.Module) {
	group := api.Group("/monitoring")
	group.GET("/summary", func(c *gin.Context) {
		response.Success(c, http.StatusOK, mon.Snapshot())
	})
}
