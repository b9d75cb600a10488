package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evfleet/internal/simulation"
)

// GetSimulation 获取模拟状态
func (h *Handler) GetSimulation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Simulation()})
}

// StartSimulation 启动模拟
func (h *Handler) StartSimulation(c *gin.Context) {
	h.simulationAction(c, h.dashboard.StartSimulation)
}

// StopSimulation 停止模拟
func (h *Handler) StopSimulation(c *gin.Context) {
	h.simulationAction(c, h.dashboard.StopSimulation)
}

// ToggleSimulation 切换模拟
func (h *Handler) ToggleSimulation(c *gin.Context) {
	h.simulationAction(c, h.dashboard.ToggleSimulation)
}

func (h *Handler) simulationAction(c *gin.Context, action func() error) {
	if err := action(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Simulation()})
}

type setIntervalRequest struct {
	IntervalMS *int64 `json:"interval_ms" binding:"required"`
}

// SetSimulationInterval 设置 tick 间隔
// PUT /api/simulation/interval {"interval_ms": 2000}，超出 [1000, 5000] 时取边界值
func (h *Handler) SetSimulationInterval(c *gin.Context) {
	var req setIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	requested := *req.IntervalMS
	applied := h.dashboard.SetSimulationInterval(simulation.ClampIntervalMillis(requested))
	c.JSON(http.StatusOK, gin.H{
		"data":    h.dashboard.Simulation(),
		"clamped": applied.Milliseconds() != requested,
	})
}

// ClearSimulationError 清除模拟错误
func (h *Handler) ClearSimulationError(c *gin.Context) {
	h.dashboard.ClearSimulationError()
	c.Status(http.StatusNoContent)
}
