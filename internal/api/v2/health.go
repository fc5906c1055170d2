package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/wildlife-go/internal/logger"
)

const bytesPerMB = 1024 * 1024

// HealthCheck reports service status, catalog size and host memory.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	uptime := time.Since(c.startTime)

	response := map[string]any{
		"status":         "healthy",
		"version":        c.version,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
	}

	count, err := c.Species.Count(reqCtx)
	if err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		response["database_error"] = err.Error()
	} else {
		response["database_status"] = "connected"
		response["species_count"] = count
	}

	if vm, err := mem.VirtualMemoryWithContext(reqCtx); err == nil {
		response["system"] = map[string]any{
			"memory": map[string]any{
				"total_mb":     vm.Total / bytesPerMB,
				"used_mb":      vm.Used / bytesPerMB,
				"used_percent": vm.UsedPercent,
			},
		}
	} else {
		GetLogger().Debug("memory stats unavailable", logger.Error(err))
	}

	return ctx.JSON(http.StatusOK, response)
}
