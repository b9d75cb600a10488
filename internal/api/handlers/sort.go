package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSort 获取排序状态
func (h *Handler) GetSort(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Sort()})
}

type setSortRequest struct {
	Option string `json:"option"`
	Order  string `json:"order"`
}

// SetSort 设置排序
// PUT /api/sort {"option": "battery", "order": "desc"}，缺省字段保持不变
func (h *Handler) SetSort(c *gin.Context) {
	var req setSortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	state, err := h.dashboard.SetSort(req.Option, req.Order)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": state})
}

// ToggleSortOrder 切换升降序
func (h *Handler) ToggleSortOrder(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.ToggleSortOrder()})
}
