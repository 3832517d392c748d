package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks map[string]CheckFunc
}

// NewHealthHandler creates a new HealthHandler. A nil map reports healthy.
func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck runs every dependency check and responds 503 if any fails.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logrus.WithField("dependency", name).Errorf("HealthCheck: %v", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, utils.JSONResponse{
			Status:  "error",
			Message: "Service is unhealthy",
			Data:    status,
			Error:   "dependency check failed",
		})
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "Service is healthy", status)
}
