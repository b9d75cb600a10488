package fleet

import (
	"math"

	"github.com/langchou/evfleet/internal/models"
)

// ComputeStats 计算车队概览统计
func ComputeStats(vehicles []models.Vehicle) models.FleetStats {
	stats := models.FleetStats{Total: len(vehicles)}

	var totalBattery, activeSpeed float64
	for _, v := range vehicles {
		switch v.Status {
		case models.StatusActive:
			stats.Active++
			activeSpeed += v.Telemetry.Speed
		case models.StatusInactive:
			stats.Inactive++
		case models.StatusMaintenance:
			stats.Maintenance++
		}
		if v.Telemetry.ChargingStatus == models.ChargingCharging {
			stats.Charging++
		}
		totalBattery += v.Telemetry.BatteryLevel
		stats.TotalOdometer += v.Telemetry.Odometer
	}

	if stats.Total > 0 {
		stats.AverageBattery = int(math.Round(totalBattery / float64(stats.Total)))
	}
	if stats.Active > 0 {
		stats.AverageSpeed = int(math.Round(activeSpeed / float64(stats.Active)))
	}
	return stats
}
