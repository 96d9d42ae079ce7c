package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arledger/backend/internal/infrastructure/scheduler"
	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	scheduler *scheduler.AgingSnapshotScheduler
}

// NewSystemHandler creates a new SystemHandler. The scheduler is
// optional; status and trigger endpoints report accordingly.
func NewSystemHandler(snapshotScheduler *scheduler.AgingSnapshotScheduler) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		scheduler: snapshotScheduler,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "AR Ledger Backend",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// Ping responds with a simple pong for liveness checks
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetSchedulerStatus reports the snapshot scheduler's state
func (h *SystemHandler) GetSchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		h.Success(c, gin.H{"enabled": false})
		return
	}
	h.Success(c, h.scheduler.GetStatus())
}

// TriggerSnapshotRun starts an out-of-schedule daily snapshot run
func (h *SystemHandler) TriggerSnapshotRun(c *gin.Context) {
	if h.scheduler == nil {
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "Snapshot scheduler is not enabled")
		return
	}

	date := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := parseDateTime(dateStr)
		if err != nil {
			h.BadRequest(c, "Invalid date format")
			return
		}
		date = parsed
	}

	if err := h.scheduler.TriggerManualRun(c.Request.Context(), date); err != nil {
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
		return
	}

	h.Success(c, gin.H{"triggered": true, "snapshot_date": date.Format("2006-01-02")})
}
