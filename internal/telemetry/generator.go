// Package telemetry 生成模拟遥测数据
package telemetry

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/langchou/evfleet/internal/models"
)

// Range 数值字段的取值区间 [Min, Max)
type Range struct {
	Min float64
	Max float64
}

// Contains 是否落在区间内
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

// 各字段取值区间
var (
	SpeedRange             = Range{0, 120}
	BatteryRange           = Range{0, 100}
	TemperatureRange       = Range{10, 70}
	TirePressureRange      = Range{25, 45}
	MotorEfficiencyRange   = Range{70, 100}
	OdometerRange          = Range{10000, 60000}
	EnergyConsumptionRange = Range{15, 30}
	VoltageRange           = Range{350, 450}
	CurrentRange           = Range{50, 250}
)

// 位置抖动中心点（纽约）及半径（度）
var (
	ReferencePoint = models.Location{Lat: 40.7128, Lng: -74.0060}
	LocationJitter = 0.05
)

// Generator 遥测生成器
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator 创建生成器，seed 为 0 时使用当前时间作为种子
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate 生成一份完整遥测，各字段独立均匀取值
func (g *Generator) Generate() models.Telemetry {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.Telemetry{
		Speed:               g.intIn(SpeedRange),
		BatteryLevel:        g.intIn(BatteryRange),
		Temperature:         g.intIn(TemperatureRange),
		TirePressure:        g.intIn(TirePressureRange),
		MotorEfficiency:     g.intIn(MotorEfficiencyRange),
		RegenerativeBraking: g.rng.Float64() > 0.7,
		Location: models.Location{
			Lat: ReferencePoint.Lat + (g.rng.Float64()-0.5)*2*LocationJitter,
			Lng: ReferencePoint.Lng + (g.rng.Float64()-0.5)*2*LocationJitter,
		},
		Odometer:          g.intIn(OdometerRange),
		EnergyConsumption: g.intIn(EnergyConsumptionRange),
		ChargingStatus:    models.ChargingStatuses[g.rng.IntN(len(models.ChargingStatuses))],
		Voltage:           g.intIn(VoltageRange),
		Current:           g.intIn(CurrentRange),
	}
}

// Float64 [0,1) 随机数，供车队初始化等调用方共享同一随机源
func (g *Generator) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

// intIn 区间内取整数值
func (g *Generator) intIn(r Range) float64 {
	return r.Min + float64(g.rng.IntN(int(r.Max-r.Min)))
}
