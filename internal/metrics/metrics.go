package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 定义指标变量
var (
	// SimulationTicks 模拟 tick 总数
	SimulationTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evfleet_simulation_ticks_total",
			Help: "Total number of simulation ticks executed.",
		},
	)

	// SimulationTickFailures tick 中被恢复的失败次数
	SimulationTickFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evfleet_simulation_tick_failures_total",
			Help: "Total number of simulation ticks that failed and were recovered.",
		},
	)

	// TelemetryUpdates 车辆遥测更新次数
	TelemetryUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evfleet_telemetry_updates_total",
			Help: "Total number of per-vehicle telemetry samples applied.",
		},
	)

	// AlertsGenerated 新产生的告警
	AlertsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evfleet_alerts_generated_total",
			Help: "Total number of alerts added to the feed.",
		},
		[]string{"type", "severity"},
	)

	// AlertsActive 当前未忽略的告警数
	AlertsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evfleet_alerts_active",
			Help: "Number of alerts that are not dismissed.",
		},
	)

	// FilterCommits 筛选条件防抖提交次数
	FilterCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evfleet_filter_commits_total",
			Help: "Total number of debounced filter commits.",
		},
	)

	// FilterSyncWrites 筛选条件写入外部状态次数
	FilterSyncWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evfleet_filter_sync_writes_total",
			Help: "Total number of filter query writes to the external sync target.",
		},
	)

	// WSClients WebSocket 连接数
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evfleet_ws_clients",
			Help: "Number of connected WebSocket clients.",
		},
	)
)

// init 注册到默认 Registry，由 /metrics 暴露
func init() {
	prometheus.MustRegister(
		SimulationTicks,
		SimulationTickFailures,
		TelemetryUpdates,
		AlertsGenerated,
		AlertsActive,
		FilterCommits,
		FilterSyncWrites,
		WSClients,
	)
}
