// Package alert 基于阈值规则生成并管理车辆告警
package alert

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/langchou/evfleet/internal/metrics"
	"github.com/langchou/evfleet/internal/models"
	"github.com/langchou/evfleet/internal/timeutil"
)

// DefaultRetention 告警保留时长
const DefaultRetention = 24 * time.Hour

// ErrAlertNotFound 告警不存在
var ErrAlertNotFound = errors.New("alert not found")

// Engine 告警引擎
type Engine struct {
	logger     *zap.Logger
	clock      timeutil.Clock
	rules      []Rule
	thresholds models.AlertThresholds
	retention  time.Duration

	mu     sync.RWMutex
	alerts []models.Alert
}

// NewEngine 创建告警引擎
func NewEngine(thresholds models.AlertThresholds, retention time.Duration, clock timeutil.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Engine{
		logger:     logger,
		clock:      clock,
		rules:      DefaultRules,
		thresholds: thresholds,
		retention:  retention,
	}
}

// Thresholds 当前阈值
func (e *Engine) Thresholds() models.AlertThresholds {
	return e.thresholds
}

// Evaluate 对车辆集合执行一轮规则评估并合并到告警列表，返回本轮新增的告警
//
// 合并规则：保留未过期且未忽略的旧告警；同一车辆同一类型已有保留告警时不再新增，
// 旧告警保留 id 与时间戳，级别与描述随最新评估更新，级别升高时重新置为未读。
func (e *Engine) Evaluate(vehicles []models.Vehicle) []models.Alert {
	now := e.clock.Now()
	triggered := e.generate(vehicles, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := now.Add(-e.retention)
	retained := make([]models.Alert, 0, len(e.alerts)+len(triggered))
	seen := make(map[string]int, len(e.alerts))
	for _, a := range e.alerts {
		if a.IsDismissed || !a.Timestamp.After(cutoff) {
			continue
		}
		seen[dedupKey(a.VehicleID, a.Type)] = len(retained)
		retained = append(retained, a)
	}

	var added []models.Alert
	for _, a := range triggered {
		key := dedupKey(a.VehicleID, a.Type)
		if i, ok := seen[key]; ok {
			if i >= 0 {
				refresh(&retained[i], a)
			}
			continue
		}
		seen[key] = -1
		added = append(added, a)
		metrics.AlertsGenerated.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}

	e.alerts = append(retained, added...)
	e.updateGaugeLocked()

	if len(added) > 0 {
		e.logger.Debug("Alerts generated", zap.Int("new", len(added)), zap.Int("total", len(e.alerts)))
	}
	return added
}

// refresh 用最新评估结果更新保留告警的级别与描述
func refresh(kept *models.Alert, latest models.Alert) {
	if severityRank(latest.Severity) > severityRank(kept.Severity) {
		kept.IsRead = false
	}
	kept.Severity = latest.Severity
	kept.Message = latest.Message
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityLow:
		return 1
	case models.SeverityMedium:
		return 2
	case models.SeverityHigh:
		return 3
	case models.SeverityCritical:
		return 4
	}
	return 0
}

// generate 对每辆车依次执行规则，单条规则 panic 不影响其他规则
func (e *Engine) generate(vehicles []models.Vehicle, now time.Time) []models.Alert {
	var out []models.Alert
	for _, v := range vehicles {
		for _, rule := range e.rules {
			if a, ok := e.apply(rule, v, now); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

func (e *Engine) apply(rule Rule, v models.Vehicle, now time.Time) (alert models.Alert, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Alert rule panicked",
				zap.String("rule", string(rule.Type)),
				zap.String("vehicle_id", v.ID),
				zap.Any("panic", r))
			ok = false
		}
	}()

	severity, message, hit := rule.Evaluate(v, e.thresholds)
	if !hit {
		return models.Alert{}, false
	}
	return models.Alert{
		ID:          fmt.Sprintf("%s_%d_%s", v.ID, now.UnixMilli(), rule.Suffix),
		VehicleID:   v.ID,
		VehicleName: v.Name,
		Type:        rule.Type,
		Severity:    severity,
		Title:       rule.Title,
		Message:     message,
		Timestamp:   now,
	}, true
}

// MarkAsRead 标记单条告警已读
func (e *Engine) MarkAsRead(id string) bool {
	return e.modify(id, func(a *models.Alert) { a.IsRead = true })
}

// Dismiss 忽略告警（保留记录直到 ClearDismissed 或下一轮评估）
func (e *Engine) Dismiss(id string) bool {
	return e.modify(id, func(a *models.Alert) { a.IsDismissed = true })
}

// MarkAllAsRead 全部标记已读，返回状态发生变化的条数
func (e *Engine) MarkAllAsRead() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for i := range e.alerts {
		if !e.alerts[i].IsRead {
			e.alerts[i].IsRead = true
			n++
		}
	}
	return n
}

// ClearDismissed 移除已忽略的告警，返回移除条数
func (e *Engine) ClearDismissed() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.alerts[:0]
	for _, a := range e.alerts {
		if !a.IsDismissed {
			kept = append(kept, a)
		}
	}
	removed := len(e.alerts) - len(kept)
	e.alerts = kept
	return removed
}

func (e *Engine) modify(id string, fn func(*models.Alert)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.alerts {
		if e.alerts[i].ID == id {
			fn(&e.alerts[i])
			e.updateGaugeLocked()
			return true
		}
	}
	return false
}

// All 全部告警（含已忽略）
func (e *Engine) All() []models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Alert(nil), e.alerts...)
}

// Active 未忽略的告警
func (e *Engine) Active() []models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeLocked()
}

// UnreadCount 未忽略且未读的告警数
func (e *Engine) UnreadCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, a := range e.alerts {
		if !a.IsDismissed && !a.IsRead {
			n++
		}
	}
	return n
}

// CriticalCount 未忽略的 critical 告警数
func (e *Engine) CriticalCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, a := range e.alerts {
		if !a.IsDismissed && a.Severity == models.SeverityCritical {
			n++
		}
	}
	return n
}

// ByVehicle 按车辆分组的未忽略告警
func (e *Engine) ByVehicle() map[string][]models.Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]models.Alert)
	for _, a := range e.activeLocked() {
		out[a.VehicleID] = append(out[a.VehicleID], a)
	}
	return out
}

func (e *Engine) activeLocked() []models.Alert {
	out := make([]models.Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		if !a.IsDismissed {
			out = append(out, a)
		}
	}
	return out
}

func (e *Engine) updateGaugeLocked() {
	active := 0
	for _, a := range e.alerts {
		if !a.IsDismissed {
			active++
		}
	}
	metrics.AlertsActive.Set(float64(active))
}

func dedupKey(vehicleID string, t models.AlertType) string {
	return vehicleID + "|" + string(t)
}

// LoadThresholds 从 YAML 文件读取阈值，未出现的字段使用默认值
func LoadThresholds(path string) (models.AlertThresholds, error) {
	th := models.DefaultThresholds
	if path == "" {
		return th, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read thresholds file: %w", err)
	}
	if err := yaml.Unmarshal(data, &th); err != nil {
		return models.DefaultThresholds, fmt.Errorf("parse thresholds file: %w", err)
	}
	if th.LowBattery < 0 || th.HighTemperature <= 0 || th.MaintenanceDue <= 0 || th.SpeedLimit <= 0 {
		return models.DefaultThresholds, fmt.Errorf("invalid thresholds in %s: %+v", path, th)
	}
	return th, nil
}
