package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListAlerts 获取未忽略的告警
// GET /api/alerts?group=vehicle 按车辆分组
func (h *Handler) ListAlerts(c *gin.Context) {
	snap := h.dashboard.Snapshot()
	if c.Query("group") == "vehicle" {
		c.JSON(http.StatusOK, gin.H{
			"data":           h.dashboard.AlertsByVehicle(),
			"unread_count":   snap.UnreadCount,
			"critical_count": snap.CriticalCount,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":           snap.Alerts,
		"unread_count":   snap.UnreadCount,
		"critical_count": snap.CriticalCount,
	})
}

// MarkAlertRead 标记告警已读
func (h *Handler) MarkAlertRead(c *gin.Context) {
	if err := h.dashboard.MarkAlertRead(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DismissAlert 忽略告警
func (h *Handler) DismissAlert(c *gin.Context) {
	if err := h.dashboard.DismissAlert(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllAlertsRead 全部标记已读
func (h *Handler) MarkAllAlertsRead(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"updated": h.dashboard.MarkAllAlertsRead()})
}

// ClearDismissedAlerts 清除已忽略告警
func (h *Handler) ClearDismissedAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": h.dashboard.ClearDismissedAlerts()})
}
