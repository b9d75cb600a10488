package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/langchou/evfleet/internal/alert"
	"github.com/langchou/evfleet/internal/service"
	"github.com/langchou/evfleet/internal/sorting"
	"github.com/langchou/evfleet/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger    *zap.Logger
	dashboard *service.DashboardService
	wsHub     *ws.Hub
	upgrader  websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	dashboard *service.DashboardService,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:    logger,
		dashboard: dashboard,
		wsHub:     wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 开发环境允许所有来源
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		api.GET("/snapshot", h.GetSnapshot)

		// 车辆
		api.GET("/vehicles", h.ListVehicles)
		api.GET("/vehicles/:id", h.GetVehicle)
		api.PUT("/vehicles/:id/status", h.SetVehicleStatus)
		api.PATCH("/vehicles/:id/telemetry", h.UpdateTelemetry)
		api.GET("/stats", h.GetStats)

		// 模拟
		api.GET("/simulation", h.GetSimulation)
		api.POST("/simulation/start", h.StartSimulation)
		api.POST("/simulation/stop", h.StopSimulation)
		api.POST("/simulation/toggle", h.ToggleSimulation)
		api.PUT("/simulation/interval", h.SetSimulationInterval)
		api.DELETE("/simulation/error", h.ClearSimulationError)

		// 筛选
		api.GET("/filters", h.GetFilters)
		api.POST("/filters/status/:value", h.ToggleStatusFilter)
		api.POST("/filters/charging/:value", h.ToggleChargingFilter)
		api.DELETE("/filters", h.ClearFilters)
		api.PUT("/filters/query", h.SetFilterQuery)
		api.POST("/navigation/back", h.NavigateBack)
		api.POST("/navigation/forward", h.NavigateForward)

		// 排序
		api.GET("/sort", h.GetSort)
		api.PUT("/sort", h.SetSort)
		api.POST("/sort/toggle", h.ToggleSortOrder)

		// 告警
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/read", h.MarkAllAlertsRead)
		api.DELETE("/alerts/dismissed", h.ClearDismissedAlerts)
		api.POST("/alerts/:id/read", h.MarkAlertRead)
		api.POST("/alerts/:id/dismiss", h.DismissAlert)
	}

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)

	// Prometheus
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetSnapshot 获取完整看板快照
func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Snapshot()})
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"simulating": h.dashboard.Simulation().Running,
		"ws_clients": h.wsHub.ClientCount(),
	})
}

// respondError 将领域错误映射为 HTTP 状态码
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrVehicleNotFound), errors.Is(err, alert.ErrAlertNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidFilterValue),
		errors.Is(err, sorting.ErrInvalidSortOption),
		errors.Is(err, sorting.ErrInvalidSortOrder):
		status = http.StatusBadRequest
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
