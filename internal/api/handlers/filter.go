package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/evfleet/internal/models"
)

// GetFilters 获取筛选状态
func (h *Handler) GetFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Filters()})
}

// ToggleStatusFilter 切换状态筛选项，value 为 all 时清空
func (h *Handler) ToggleStatusFilter(c *gin.Context) {
	h.filterAction(c, h.dashboard.ToggleStatusFilter)
}

// ToggleChargingFilter 切换充电筛选项，value 为 all 时清空
func (h *Handler) ToggleChargingFilter(c *gin.Context) {
	h.filterAction(c, h.dashboard.ToggleChargingFilter)
}

func (h *Handler) filterAction(c *gin.Context, toggle func(string) (models.FilterState, error)) {
	pending, err := toggle(c.Param("value"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pending})
}

// ClearFilters 清空筛选
func (h *Handler) ClearFilters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.ClearFilters()})
}

type setQueryRequest struct {
	Query string `json:"query"`
}

// SetFilterQuery 以查询串替换筛选
// PUT /api/filters/query {"query": "status=active&charging=idle"}
func (h *Handler) SetFilterQuery(c *gin.Context) {
	var req setQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.SetFilterQuery(req.Query)})
}

// NavigateBack 筛选历史后退
func (h *Handler) NavigateBack(c *gin.Context) {
	h.navigate(c, h.dashboard.NavigateBack)
}

// NavigateForward 筛选历史前进
func (h *Handler) NavigateForward(c *gin.Context) {
	h.navigate(c, h.dashboard.NavigateForward)
}

func (h *Handler) navigate(c *gin.Context, move func() bool) {
	if !move() {
		c.JSON(http.StatusConflict, gin.H{"error": "No history entry in that direction"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Filters()})
}
