package alert

import (
	"fmt"
	"math"
	"strconv"

	"github.com/langchou/evfleet/internal/models"
)

// chargingIssueBattery 闲置且电量不高于该值的停运车辆视为充电异常
const chargingIssueBattery = 30

// Rule 告警规则
type Rule struct {
	Type   models.AlertType
	Suffix string
	Title  string
	// Evaluate 条件成立时返回级别与消息
	Evaluate func(v models.Vehicle, th models.AlertThresholds) (models.Severity, string, bool)
}

// DefaultRules 按评估顺序排列的规则表
var DefaultRules = []Rule{
	{
		Type:   models.AlertLowBattery,
		Suffix: "battery",
		Title:  "Low Battery Warning",
		Evaluate: func(v models.Vehicle, th models.AlertThresholds) (models.Severity, string, bool) {
			level := v.Telemetry.BatteryLevel
			if level > th.LowBattery {
				return "", "", false
			}
			severity := models.SeverityMedium
			switch {
			case level <= 10:
				severity = models.SeverityCritical
			case level <= 15:
				severity = models.SeverityHigh
			}
			return severity, fmt.Sprintf("Battery level at %s%%. Charging recommended.", num(level)), true
		},
	},
	{
		Type:   models.AlertHighTemperature,
		Suffix: "temp",
		Title:  "High Temperature Alert",
		Evaluate: func(v models.Vehicle, th models.AlertThresholds) (models.Severity, string, bool) {
			temp := v.Telemetry.Temperature
			if temp < th.HighTemperature {
				return "", "", false
			}
			severity := models.SeverityMedium
			switch {
			case temp >= 55:
				severity = models.SeverityCritical
			case temp >= 50:
				severity = models.SeverityHigh
			}
			return severity, fmt.Sprintf("Temperature at %s°C. System may overheat.", num(temp)), true
		},
	},
	{
		Type:   models.AlertMaintenanceDue,
		Suffix: "maintenance",
		Title:  "Maintenance Required",
		Evaluate: func(v models.Vehicle, th models.AlertThresholds) (models.Severity, string, bool) {
			if v.Telemetry.Odometer < th.MaintenanceDue {
				return "", "", false
			}
			km := math.Round(v.Telemetry.Odometer / 1000)
			return models.SeverityMedium, fmt.Sprintf("Vehicle has traveled %skm. Schedule maintenance.", num(km)), true
		},
	},
	{
		Type:   models.AlertChargingError,
		Suffix: "charging",
		Title:  "Charging Issue",
		Evaluate: func(v models.Vehicle, _ models.AlertThresholds) (models.Severity, string, bool) {
			t := v.Telemetry
			if t.ChargingStatus != models.ChargingIdle || t.BatteryLevel > chargingIssueBattery || v.Status != models.StatusInactive {
				return "", "", false
			}
			return models.SeverityHigh, fmt.Sprintf("Vehicle idle with %s%% battery. Check charging connection.", num(t.BatteryLevel)), true
		},
	},
	{
		Type:   models.AlertSpeedLimit,
		Suffix: "speed",
		Title:  "Speed Limit Exceeded",
		Evaluate: func(v models.Vehicle, th models.AlertThresholds) (models.Severity, string, bool) {
			if v.Status != models.StatusActive || v.Telemetry.Speed <= th.SpeedLimit {
				return "", "", false
			}
			return models.SeverityHigh, fmt.Sprintf("Vehicle traveling at %s km/h. Speed limit: %s km/h.",
				num(v.Telemetry.Speed), num(th.SpeedLimit)), true
		},
	},
}

// num 以最短形式格式化数值（整数不带小数点）
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
