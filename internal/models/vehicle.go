package models

import "time"

// VehicleStatus 车辆运营状态
type VehicleStatus string

const (
	StatusActive      VehicleStatus = "active"
	StatusInactive    VehicleStatus = "inactive"
	StatusMaintenance VehicleStatus = "maintenance"
)

// VehicleStatuses 全部车辆状态（按展示顺序）
var VehicleStatuses = []VehicleStatus{StatusActive, StatusInactive, StatusMaintenance}

// Valid 是否为已知状态
func (s VehicleStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance:
		return true
	}
	return false
}

// ChargingStatus 充电状态
type ChargingStatus string

const (
	ChargingCharging    ChargingStatus = "charging"
	ChargingDischarging ChargingStatus = "discharging"
	ChargingIdle        ChargingStatus = "idle"
)

// ChargingStatuses 全部充电状态
var ChargingStatuses = []ChargingStatus{ChargingCharging, ChargingDischarging, ChargingIdle}

// Valid 是否为已知充电状态
func (c ChargingStatus) Valid() bool {
	switch c {
	case ChargingCharging, ChargingDischarging, ChargingIdle:
		return true
	}
	return false
}

// Location 经纬度
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Telemetry 单次遥测快照
type Telemetry struct {
	Speed               float64        `json:"speed"`                // km/h
	BatteryLevel        float64        `json:"battery_level"`        // %
	Temperature         float64        `json:"temperature"`          // °C
	TirePressure        float64        `json:"tire_pressure"`        // PSI
	MotorEfficiency     float64        `json:"motor_efficiency"`     // %
	RegenerativeBraking bool           `json:"regenerative_braking"` // 是否正在能量回收
	Location            Location       `json:"location"`             // 经纬度
	Odometer            float64        `json:"odometer"`             // km
	EnergyConsumption   float64        `json:"energy_consumption"`   // kWh/100km
	ChargingStatus      ChargingStatus `json:"charging_status"`      // 充电状态
	Voltage             float64        `json:"voltage"`              // V
	Current             float64        `json:"current"`              // A
}

// TelemetryPatch 部分遥测更新，nil 字段保持原值
type TelemetryPatch struct {
	Speed               *float64        `json:"speed,omitempty"`
	BatteryLevel        *float64        `json:"battery_level,omitempty"`
	Temperature         *float64        `json:"temperature,omitempty"`
	TirePressure        *float64        `json:"tire_pressure,omitempty"`
	MotorEfficiency     *float64        `json:"motor_efficiency,omitempty"`
	RegenerativeBraking *bool           `json:"regenerative_braking,omitempty"`
	Location            *Location       `json:"location,omitempty"`
	Odometer            *float64        `json:"odometer,omitempty"`
	EnergyConsumption   *float64        `json:"energy_consumption,omitempty"`
	ChargingStatus      *ChargingStatus `json:"charging_status,omitempty"`
	Voltage             *float64        `json:"voltage,omitempty"`
	Current             *float64        `json:"current,omitempty"`
}

// Apply 将补丁合并到遥测数据
func (p TelemetryPatch) Apply(t *Telemetry) {
	if p.Speed != nil {
		t.Speed = *p.Speed
	}
	if p.BatteryLevel != nil {
		t.BatteryLevel = *p.BatteryLevel
	}
	if p.Temperature != nil {
		t.Temperature = *p.Temperature
	}
	if p.TirePressure != nil {
		t.TirePressure = *p.TirePressure
	}
	if p.MotorEfficiency != nil {
		t.MotorEfficiency = *p.MotorEfficiency
	}
	if p.RegenerativeBraking != nil {
		t.RegenerativeBraking = *p.RegenerativeBraking
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Odometer != nil {
		t.Odometer = *p.Odometer
	}
	if p.EnergyConsumption != nil {
		t.EnergyConsumption = *p.EnergyConsumption
	}
	if p.ChargingStatus != nil {
		t.ChargingStatus = *p.ChargingStatus
	}
	if p.Voltage != nil {
		t.Voltage = *p.Voltage
	}
	if p.Current != nil {
		t.Current = *p.Current
	}
}

// Vehicle 车队车辆
type Vehicle struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Model       string        `json:"model"`
	Status      VehicleStatus `json:"status"`
	Telemetry   Telemetry     `json:"telemetry"`
	LastUpdated time.Time     `json:"last_updated"`
}

// FleetStats 车队概览统计
type FleetStats struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Inactive       int     `json:"inactive"`
	Maintenance    int     `json:"maintenance"`
	Charging       int     `json:"charging"`
	AverageBattery int     `json:"average_battery"`
	AverageSpeed   int     `json:"average_speed"` // 仅统计 active 车辆
	TotalOdometer  float64 `json:"total_odometer"`
}
