package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evfleet/internal/models"
)

// ListVehicles 按当前筛选与排序获取车辆列表
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles := h.dashboard.Vehicles()
	c.JSON(http.StatusOK, gin.H{"data": vehicles, "total": len(vehicles)})
}

// GetVehicle 获取车辆详情
func (h *Handler) GetVehicle(c *gin.Context) {
	vehicle, err := h.dashboard.Vehicle(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

type setStatusRequest struct {
	Status models.VehicleStatus `json:"status" binding:"required"`
}

// SetVehicleStatus 修改车辆运营状态
// PUT /api/vehicles/:id/status {"status": "maintenance"}
func (h *Handler) SetVehicleStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vehicle, err := h.dashboard.SetVehicleStatus(c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// UpdateTelemetry 合并部分遥测
// PATCH /api/vehicles/:id/telemetry，未出现的字段保持原值
func (h *Handler) UpdateTelemetry(c *gin.Context) {
	var patch models.TelemetryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vehicle, err := h.dashboard.UpdateTelemetry(c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// GetStats 获取车队统计
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Stats()})
}
