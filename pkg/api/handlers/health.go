package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/homai-scheduler/pkg/api/types"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	svc *schedule.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc *schedule.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Reports whether the scheduler is running and the tag writer is connected
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	writer := "disconnected"
	if h.svc.Connected() {
		writer = "connected"
	}
	scheduler := "stopped"
	if h.svc.Ready() {
		scheduler = "running"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if writer != "connected" || scheduler != "running" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	stats := h.svc.Stats()
	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Writer:    writer,
		Scheduler: scheduler,
		Timezone:  h.svc.Location().String(),
		Schedules: stats.Schedules,
		ArmedTags: stats.ArmedTags,
		Timestamp: time.Now(),
	})
}
