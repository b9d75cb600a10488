package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/evfleet/internal/alert"
	"github.com/langchou/evfleet/internal/filter"
	"github.com/langchou/evfleet/internal/fleet"
	"github.com/langchou/evfleet/internal/models"
	"github.com/langchou/evfleet/internal/simulation"
	"github.com/langchou/evfleet/internal/sorting"
	"github.com/langchou/evfleet/pkg/ws"
)

var (
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrInvalidStatus      = errors.New("invalid vehicle status")
	ErrInvalidFilterValue = errors.New("invalid filter value")
	ErrServiceClosed      = errors.New("dashboard service closed")
)

// Snapshot 推送给前端的完整只读视图
type Snapshot struct {
	Vehicles         []models.Vehicle    `json:"vehicles"` // 已筛选并排序
	VehicleIDs       []string            `json:"vehicle_ids"`
	Counts           models.FilterCounts `json:"counts"`
	Stats            models.FleetStats   `json:"stats"`
	PendingFilters   models.FilterState  `json:"pending_filters"`
	CommittedFilters models.FilterState  `json:"committed_filters"`
	Query            string              `json:"query"`
	Sort             models.SortState    `json:"sort"`
	Alerts           []models.Alert      `json:"alerts"`
	UnreadCount      int                 `json:"unread_count"`
	CriticalCount    int                 `json:"critical_count"`
	Simulating       bool                `json:"simulating"`
	IntervalMS       int64               `json:"interval_ms"`
	Error            string              `json:"error,omitempty"`
}

// SimulationStatus 模拟驱动状态
type SimulationStatus struct {
	Running      bool       `json:"running"`
	RunningSince *time.Time `json:"running_since,omitempty"`
	IntervalMS   int64      `json:"interval_ms"`
	Ticks        uint64     `json:"ticks"`
	Error        string     `json:"error,omitempty"`
}

// FilterView 筛选状态与导航历史
type FilterView struct {
	Pending   models.FilterState `json:"pending"`
	Committed models.FilterState `json:"committed"`
	Query     string             `json:"query"`
	History   []string           `json:"history"`
	Cursor    int                `json:"cursor"`
}

// DashboardService 车队看板服务
// 组合车辆仓库、模拟驱动、告警引擎、筛选桥接与排序，并向订阅者推送快照
type DashboardService struct {
	logger  *zap.Logger
	store   *fleet.Store
	driver  *simulation.Driver
	alerts  *alert.Engine
	bridge  *filter.Bridge
	history *filter.History
	sorter  *sorting.Sorter
	wsHub   *ws.Hub // WebSocket Hub

	// publishMu 保证快照按生成顺序推送
	publishMu sync.Mutex

	mu          sync.RWMutex
	subscribers []chan Snapshot
	unsubscribe func()
	started     bool
	closed      bool
}

// NewDashboardService 创建看板服务
func NewDashboardService(
	logger *zap.Logger,
	store *fleet.Store,
	driver *simulation.Driver,
	alerts *alert.Engine,
	bridge *filter.Bridge,
	history *filter.History,
	sorter *sorting.Sorter,
	wsHub *ws.Hub,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		logger:  logger,
		store:   store,
		driver:  driver,
		alerts:  alerts,
		bridge:  bridge,
		history: history,
		sorter:  sorter,
		wsHub:   wsHub,
	}
}

// Start 注册监听并完成首次告警评估；autostart 或仓库开关已打开时启动模拟
func (s *DashboardService) Start(autostart bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	if s.started {
		s.mu.Unlock()
		s.logger.Info("Dashboard service already running, skipping start")
		return nil
	}
	s.started = true
	s.unsubscribe = s.store.Subscribe(s.onFleetChange)
	s.mu.Unlock()

	s.bridge.OnCommit(func(models.FilterState) { s.publish() })
	if s.wsHub != nil {
		s.wsHub.SetInitDataProvider(func() interface{} { return s.Snapshot() })
	}

	s.alerts.Evaluate(s.store.Vehicles())
	s.publish()

	var err error
	if autostart {
		err = s.driver.Start()
	} else {
		err = s.driver.Resume()
	}
	if err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}

	s.logger.Info("Dashboard service started",
		zap.Int("vehicles", len(s.store.IDs())),
		zap.Bool("simulating", s.driver.IsRunning()))
	return nil
}

// Close 停止模拟、立即提交待定筛选并关闭订阅 channel，可重复调用
func (s *DashboardService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.driver.Close()
	s.bridge.Flush()
	s.bridge.Close()

	// 等待进行中的推送结束后再关闭 channel
	s.publishMu.Lock()
	s.mu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.mu.Unlock()
	s.publishMu.Unlock()

	s.logger.Info("Dashboard service stopped")
}

// Subscribe 订阅快照更新
func (s *DashboardService) Subscribe() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Snapshot, 10)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Snapshot 生成当前快照
func (s *DashboardService) Snapshot() Snapshot {
	all := s.store.Vehicles()
	committed := s.bridge.Committed()
	sortState := s.sorter.State()

	var errMsg string
	if err := s.driver.Err(); err != nil {
		errMsg = err.Error()
	}

	return Snapshot{
		Vehicles:         sorting.Sort(filter.Apply(all, committed), sortState),
		VehicleIDs:       s.store.IDs(),
		Counts:           filter.Counts(all),
		Stats:            fleet.ComputeStats(all),
		PendingFilters:   s.bridge.Pending(),
		CommittedFilters: committed,
		Query:            filter.Encode(committed),
		Sort:             sortState,
		Alerts:           s.alerts.Active(),
		UnreadCount:      s.alerts.UnreadCount(),
		CriticalCount:    s.alerts.CriticalCount(),
		Simulating:       s.driver.IsRunning(),
		IntervalMS:       s.driver.Interval().Milliseconds(),
		Error:            errMsg,
	}
}

// ---- vehicles ----

// Vehicles 按当前筛选与排序返回车辆
func (s *DashboardService) Vehicles() []models.Vehicle {
	return s.sorter.Sort(filter.Apply(s.store.Vehicles(), s.bridge.Committed()))
}

// Vehicle 获取单辆车
func (s *DashboardService) Vehicle(id string) (models.Vehicle, error) {
	v, ok := s.store.Vehicle(id)
	if !ok {
		return models.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	return v, nil
}

// Stats 车队统计
func (s *DashboardService) Stats() models.FleetStats {
	return fleet.ComputeStats(s.store.Vehicles())
}

// SetVehicleStatus 修改车辆运营状态
func (s *DashboardService) SetVehicleStatus(id string, status models.VehicleStatus) (models.Vehicle, error) {
	if !status.Valid() {
		return models.Vehicle{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if !s.store.SetStatus(id, status) {
		return models.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	return s.Vehicle(id)
}

// UpdateTelemetry 合并部分遥测
func (s *DashboardService) UpdateTelemetry(id string, patch models.TelemetryPatch) (models.Vehicle, error) {
	if patch.ChargingStatus != nil && !patch.ChargingStatus.Valid() {
		return models.Vehicle{}, fmt.Errorf("%w: charging status %q", ErrInvalidStatus, *patch.ChargingStatus)
	}
	if !s.store.UpdateTelemetry(id, patch) {
		return models.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	return s.Vehicle(id)
}

// ---- simulation ----

// StartSimulation 启动模拟
func (s *DashboardService) StartSimulation() error {
	defer s.publish()
	return s.driver.Start()
}

// StopSimulation 停止模拟
func (s *DashboardService) StopSimulation() error {
	defer s.publish()
	return s.driver.Stop()
}

// ToggleSimulation 切换模拟
func (s *DashboardService) ToggleSimulation() error {
	defer s.publish()
	return s.driver.Toggle()
}

// SetSimulationInterval 设置 tick 间隔，返回限制后的值
func (s *DashboardService) SetSimulationInterval(d time.Duration) time.Duration {
	defer s.publish()
	return s.driver.SetInterval(d)
}

// ClearSimulationError 清除错误
func (s *DashboardService) ClearSimulationError() {
	s.driver.ClearError()
	s.publish()
}

// Simulation 当前模拟状态
func (s *DashboardService) Simulation() SimulationStatus {
	st := SimulationStatus{
		Running:    s.driver.IsRunning(),
		IntervalMS: s.driver.Interval().Milliseconds(),
		Ticks:      s.driver.Ticks(),
	}
	if since, ok := s.driver.RunningSince(); ok {
		st.RunningSince = &since
	}
	if err := s.driver.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// ---- filters ----

// Filters 当前筛选状态
func (s *DashboardService) Filters() FilterView {
	committed := s.bridge.Committed()
	entries, cursor := s.history.Entries()
	return FilterView{
		Pending:   s.bridge.Pending(),
		Committed: committed,
		Query:     filter.Encode(committed),
		History:   entries,
		Cursor:    cursor,
	}
}

// ToggleStatusFilter 切换状态筛选项
func (s *DashboardService) ToggleStatusFilter(value string) (models.FilterState, error) {
	if value != models.FilterAll && !models.VehicleStatus(value).Valid() {
		return models.FilterState{}, fmt.Errorf("%w: status %q", ErrInvalidFilterValue, value)
	}
	return s.withPending(s.bridge.ToggleStatus(value)), nil
}

// ToggleChargingFilter 切换充电筛选项
func (s *DashboardService) ToggleChargingFilter(value string) (models.FilterState, error) {
	if value != models.FilterAll && !models.ChargingStatus(value).Valid() {
		return models.FilterState{}, fmt.Errorf("%w: charging %q", ErrInvalidFilterValue, value)
	}
	return s.withPending(s.bridge.ToggleCharging(value)), nil
}

// ClearFilters 清空筛选
func (s *DashboardService) ClearFilters() models.FilterState {
	return s.withPending(s.bridge.Clear())
}

// SetFilterQuery 以查询串整体替换 pending 筛选
func (s *DashboardService) SetFilterQuery(query string) models.FilterState {
	return s.withPending(s.bridge.SetPending(filter.Decode(query)))
}

// NavigateBack 后退到上一条筛选历史
func (s *DashboardService) NavigateBack() bool {
	return s.history.Back()
}

// NavigateForward 前进到下一条筛选历史
func (s *DashboardService) NavigateForward() bool {
	return s.history.Forward()
}

// withPending pending 变化立即推送，committed 由防抖提交后再推送
func (s *DashboardService) withPending(f models.FilterState) models.FilterState {
	s.publish()
	return f
}

// ---- sort ----

// Sort 当前排序状态
func (s *DashboardService) Sort() models.SortState {
	return s.sorter.State()
}

// SetSort 设置排序字段与方向，空值表示保持不变
func (s *DashboardService) SetSort(option, order string) (models.SortState, error) {
	var (
		opt models.SortOption
		ord models.SortOrder
		err error
	)
	if option != "" {
		if opt, err = sorting.ParseOption(option); err != nil {
			return s.sorter.State(), err
		}
	}
	if order != "" {
		if ord, err = sorting.ParseOrder(order); err != nil {
			return s.sorter.State(), err
		}
	}

	if opt != "" {
		s.sorter.SetOption(opt)
	}
	if ord != "" {
		s.sorter.SetOrder(ord)
	}
	s.publish()
	return s.sorter.State(), nil
}

// ToggleSortOrder 切换升降序
func (s *DashboardService) ToggleSortOrder() models.SortState {
	st := s.sorter.ToggleOrder()
	s.publish()
	return st
}

// ---- alerts ----

// Alerts 未忽略的告警
func (s *DashboardService) Alerts() []models.Alert {
	return s.alerts.Active()
}

// AlertsByVehicle 按车辆分组的告警
func (s *DashboardService) AlertsByVehicle() map[string][]models.Alert {
	return s.alerts.ByVehicle()
}

// MarkAlertRead 标记告警已读
func (s *DashboardService) MarkAlertRead(id string) error {
	if !s.alerts.MarkAsRead(id) {
		return fmt.Errorf("%w: %s", alert.ErrAlertNotFound, id)
	}
	s.publish()
	return nil
}

// DismissAlert 忽略告警
func (s *DashboardService) DismissAlert(id string) error {
	if !s.alerts.Dismiss(id) {
		return fmt.Errorf("%w: %s", alert.ErrAlertNotFound, id)
	}
	s.logger.Info("Alert dismissed", zap.String("alert_id", id))
	s.publish()
	return nil
}

// MarkAllAlertsRead 全部标记已读
func (s *DashboardService) MarkAllAlertsRead() int {
	n := s.alerts.MarkAllAsRead()
	s.publish()
	return n
}

// ClearDismissedAlerts 移除已忽略告警
func (s *DashboardService) ClearDismissedAlerts() int {
	n := s.alerts.ClearDismissed()
	s.publish()
	return n
}

// onFleetChange 车队变化后重新评估告警并推送
func (s *DashboardService) onFleetChange(snap fleet.Snapshot) {
	if added := s.alerts.Evaluate(snap.Vehicles); len(added) > 0 {
		s.logger.Info("New alerts raised", zap.Int("count", len(added)))
	}
	s.publish()
}

func (s *DashboardService) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	snap := s.Snapshot()
	s.notifySubscribers(snap)
	s.broadcastSnapshot(snap)
}

// notifySubscribers 通知订阅者（内部 channel 订阅者）
func (s *DashboardService) notifySubscribers(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// 跳过慢消费者
		}
	}
}

// broadcastSnapshot 广播快照到 WebSocket
func (s *DashboardService) broadcastSnapshot(snap Snapshot) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.BroadcastSnapshot(snap)
	s.logger.Debug("Broadcasted snapshot via WebSocket", zap.Int("vehicles", len(snap.Vehicles)))
}
