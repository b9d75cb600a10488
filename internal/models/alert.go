package models

import "time"

// AlertType 告警类型
type AlertType string

const (
	AlertLowBattery      AlertType = "low_battery"
	AlertHighTemperature AlertType = "high_temperature"
	AlertMaintenanceDue  AlertType = "maintenance_due"
	AlertChargingError   AlertType = "charging_error"
	AlertSpeedLimit      AlertType = "speed_limit"
)

// Severity 告警级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert 告警记录
type Alert struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicle_id"`
	VehicleName string    `json:"vehicle_name"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
	IsDismissed bool      `json:"is_dismissed"`
}

// AlertThresholds 告警阈值
type AlertThresholds struct {
	LowBattery      float64 `json:"low_battery" yaml:"low_battery"`           // %
	HighTemperature float64 `json:"high_temperature" yaml:"high_temperature"` // °C
	MaintenanceDue  float64 `json:"maintenance_due" yaml:"maintenance_due"`   // km
	SpeedLimit      float64 `json:"speed_limit" yaml:"speed_limit"`           // km/h
}

// DefaultThresholds 默认阈值
var DefaultThresholds = AlertThresholds{
	LowBattery:      20,
	HighTemperature: 45,
	MaintenanceDue:  50000,
	SpeedLimit:      120,
}
