// Package filter 车辆多选筛选、计数以及筛选条件与外部查询串的同步
package filter

import (
	"slices"

	"github.com/langchou/evfleet/internal/models"
)

// Apply 返回满足筛选条件的车辆，保持输入顺序
// 空集合表示不限制
func Apply(vehicles []models.Vehicle, f models.FilterState) []models.Vehicle {
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if Match(v, f) {
			out = append(out, v)
		}
	}
	return out
}

// Match 单辆车是否满足筛选条件
func Match(v models.Vehicle, f models.FilterState) bool {
	statusMatch := len(f.Status) == 0 || slices.Contains(f.Status, v.Status)
	chargingMatch := len(f.Charging) == 0 || slices.Contains(f.Charging, v.Telemetry.ChargingStatus)
	return statusMatch && chargingMatch
}

// Counts 在完整车队上统计各筛选项数量，与当前筛选无关
func Counts(vehicles []models.Vehicle) models.FilterCounts {
	c := models.FilterCounts{Total: len(vehicles)}
	for _, v := range vehicles {
		switch v.Status {
		case models.StatusActive:
			c.Active++
		case models.StatusInactive:
			c.Inactive++
		case models.StatusMaintenance:
			c.Maintenance++
		}
		switch v.Telemetry.ChargingStatus {
		case models.ChargingCharging:
			c.Charging++
		case models.ChargingDischarging:
			c.Discharging++
		case models.ChargingIdle:
			c.Idle++
		}
	}
	return c
}

// ToggleStatus 切换状态筛选项；value 为 "all" 时清空状态集合
func ToggleStatus(f models.FilterState, value string) models.FilterState {
	next := f.Clone()
	if value == models.FilterAll {
		next.Status = []models.VehicleStatus{}
		return next
	}
	next.Status = toggle(next.Status, models.VehicleStatus(value))
	return next
}

// ToggleCharging 切换充电筛选项；value 为 "all" 时清空充电集合
func ToggleCharging(f models.FilterState, value string) models.FilterState {
	next := f.Clone()
	if value == models.FilterAll {
		next.Charging = []models.ChargingStatus{}
		return next
	}
	next.Charging = toggle(next.Charging, models.ChargingStatus(value))
	return next
}

// Clear 清空全部筛选
func Clear() models.FilterState {
	return models.FilterState{Status: []models.VehicleStatus{}, Charging: []models.ChargingStatus{}}
}

// Equal 集合语义比较（忽略顺序）
func Equal(a, b models.FilterState) bool {
	return sameSet(a.Status, b.Status) && sameSet(a.Charging, b.Charging)
}

func toggle[T comparable](set []T, v T) []T {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(set, i, i+1)
	}
	return append(set, v)
}

func sameSet[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
