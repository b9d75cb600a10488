// Package sorting 车辆列表排序
package sorting

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/langchou/evfleet/internal/models"
)

var (
	ErrInvalidSortOption = errors.New("invalid sort option")
	ErrInvalidSortOrder  = errors.New("invalid sort order")
)

// DefaultState 默认按名称升序
var DefaultState = models.SortState{Option: models.SortByName, Order: models.OrderAsc}

// ParseOption 解析排序字段
func ParseOption(s string) (models.SortOption, error) {
	switch opt := models.SortOption(s); opt {
	case models.SortByName, models.SortByBattery, models.SortBySpeed, models.SortByOdometer, models.SortByStatus:
		return opt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortOption, s)
}

// ParseOrder 解析排序方向
func ParseOrder(s string) (models.SortOrder, error) {
	switch o := models.SortOrder(s); o {
	case models.OrderAsc, models.OrderDesc:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, s)
}

// Sort 返回排序后的新切片，不修改输入
// 相等元素保持原有相对顺序
func Sort(vehicles []models.Vehicle, state models.SortState) []models.Vehicle {
	out := slices.Clone(vehicles)
	compare := comparator(state.Option)
	if compare == nil {
		return out
	}

	if state.Order == models.OrderDesc {
		slices.SortStableFunc(out, func(a, b models.Vehicle) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(out, compare)
	}
	return out
}

func comparator(opt models.SortOption) func(a, b models.Vehicle) int {
	switch opt {
	case models.SortByName:
		return func(a, b models.Vehicle) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case models.SortByBattery:
		return func(a, b models.Vehicle) int { return cmp.Compare(a.Telemetry.BatteryLevel, b.Telemetry.BatteryLevel) }
	case models.SortBySpeed:
		return func(a, b models.Vehicle) int { return cmp.Compare(a.Telemetry.Speed, b.Telemetry.Speed) }
	case models.SortByOdometer:
		return func(a, b models.Vehicle) int { return cmp.Compare(a.Telemetry.Odometer, b.Telemetry.Odometer) }
	case models.SortByStatus:
		return func(a, b models.Vehicle) int { return strings.Compare(string(a.Status), string(b.Status)) }
	}
	return nil
}

// Sorter 持有当前排序状态
type Sorter struct {
	mu    sync.RWMutex
	state models.SortState
}

// NewSorter 创建排序器
func NewSorter() *Sorter {
	return &Sorter{state: DefaultState}
}

// State 当前排序状态
func (s *Sorter) State() models.SortState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetOption 设置排序字段，保持方向
func (s *Sorter) SetOption(opt models.SortOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Option = opt
}

// SetOrder 设置排序方向
func (s *Sorter) SetOrder(order models.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Order = order
}

// ToggleOrder 切换升降序
func (s *Sorter) ToggleOrder() models.SortState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Order == models.OrderAsc {
		s.state.Order = models.OrderDesc
	} else {
		s.state.Order = models.OrderAsc
	}
	return s.state
}

// Sort 按当前状态排序
func (s *Sorter) Sort(vehicles []models.Vehicle) []models.Vehicle {
	return Sort(vehicles, s.State())
}
