// Package fleet 持有车队车辆集合，是遥测与状态变更的唯一入口
package fleet

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/evfleet/internal/models"
	"github.com/langchou/evfleet/internal/telemetry"
	"github.com/langchou/evfleet/internal/timeutil"
)

// DefaultFleetSize 默认车队规模
const DefaultFleetSize = 10

// Models 车型名录，按车辆序号分配
var Models = []string{
	"Tesla Model S",
	"BMW iX",
	"Audi e-tron",
	"Mercedes EQS",
	"Rivian R1T",
	"Ford F-150 Lightning",
	"Volvo XC40",
	"Nissan Leaf",
	"Hyundai Ioniq 5",
	"Lucid Air",
}

// Snapshot 车队只读快照
type Snapshot struct {
	Vehicles          []models.Vehicle
	SimulationEnabled bool
}

// Listener 变更监听器，在每次变更后同步调用
// 监听器中不能修改 Store
type Listener func(Snapshot)

// Store 车辆仓库
type Store struct {
	logger *zap.Logger
	gen    *telemetry.Generator
	clock  timeutil.Clock

	// notifyMu 串行化“变更 + 通知”，保证监听器按变更顺序收到快照
	notifyMu sync.Mutex

	mu         sync.RWMutex
	vehicles   []models.Vehicle
	index      map[string]int
	simulating bool

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// NewStore 按默认规则生成 10 辆车
func NewStore(gen *telemetry.Generator, clock timeutil.Clock, logger *zap.Logger) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return NewStoreWithVehicles(generateInitialVehicles(gen, clock.Now()), gen, clock, logger)
}

// NewStoreWithVehicles 使用给定车辆初始化仓库
func NewStoreWithVehicles(vehicles []models.Vehicle, gen *telemetry.Generator, clock timeutil.Clock, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	s := &Store{
		logger:    logger,
		gen:       gen,
		clock:     clock,
		vehicles:  make([]models.Vehicle, len(vehicles)),
		index:     make(map[string]int, len(vehicles)),
		listeners: make(map[int]Listener),
	}
	copy(s.vehicles, vehicles)
	for i, v := range s.vehicles {
		s.index[v.ID] = i
	}
	return s
}

// generateInitialVehicles 生成初始车队
// 状态分布：20% maintenance，其余 90% active / 10% inactive
func generateInitialVehicles(gen *telemetry.Generator, now time.Time) []models.Vehicle {
	vehicles := make([]models.Vehicle, 0, DefaultFleetSize)
	for i := 1; i <= DefaultFleetSize; i++ {
		status := models.StatusInactive
		if gen.Float64() > 0.8 {
			status = models.StatusMaintenance
		} else if gen.Float64() > 0.1 {
			status = models.StatusActive
		}

		vehicles = append(vehicles, models.Vehicle{
			ID:          fmt.Sprintf("EV-%03d", i),
			Name:        fmt.Sprintf("Fleet Vehicle %d", i),
			Model:       Models[(i-1)%len(Models)],
			Status:      status,
			Telemetry:   gen.Generate(),
			LastUpdated: now,
		})
	}
	return vehicles
}

// Vehicles 获取全部车辆副本（保持初始顺序）
func (s *Store) Vehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyVehicles()
}

// Vehicle 获取单辆车
func (s *Store) Vehicle(id string) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Vehicle{}, false
	}
	return s.vehicles[i], true
}

// IDs 稳定排序的车辆 ID，供布局排序等外部组件作为键使用
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		ids = append(ids, v.ID)
	}
	sort.Strings(ids)
	return ids
}

// SimulationEnabled 模拟开关
func (s *Store) SimulationEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulating
}

// UpdateTelemetry 合并部分遥测并更新时间戳
// 车辆不存在时静默忽略并返回 false
func (s *Store) UpdateTelemetry(id string, patch models.TelemetryPatch) bool {
	return s.mutate(func() bool {
		i, ok := s.index[id]
		if !ok {
			s.logger.Debug("Telemetry update for unknown vehicle ignored", zap.String("vehicle_id", id))
			return false
		}
		v := &s.vehicles[i]
		patch.Apply(&v.Telemetry)
		v.LastUpdated = s.stamp(v.LastUpdated)
		return true
	})
}

// UpdateAllActiveTelemetry 为所有 active 车辆生成新遥测，返回更新数量
// inactive / maintenance 车辆保持不变
func (s *Store) UpdateAllActiveTelemetry() int {
	updated := 0
	s.mutate(func() bool {
		for i := range s.vehicles {
			v := &s.vehicles[i]
			if v.Status != models.StatusActive {
				continue
			}
			v.Telemetry = s.gen.Generate()
			v.LastUpdated = s.stamp(v.LastUpdated)
			updated++
		}
		return true
	})
	s.logger.Debug("Updated active vehicle telemetry", zap.Int("updated", updated))
	return updated
}

// SetSimulationEnabled 设置模拟开关
func (s *Store) SetSimulationEnabled(enabled bool) {
	s.mutate(func() bool {
		if s.simulating == enabled {
			return false
		}
		s.simulating = enabled
		return true
	})
}

// SetStatus 直接修改车辆状态，车辆不存在时返回 false
// 状态未变化时不通知监听器
func (s *Store) SetStatus(id string, status models.VehicleStatus) bool {
	found := false
	s.mutate(func() bool {
		i, ok := s.index[id]
		if !ok {
			return false
		}
		found = true
		if s.vehicles[i].Status == status {
			return false
		}
		s.logger.Info("Vehicle status changed",
			zap.String("vehicle_id", id),
			zap.String("from", string(s.vehicles[i].Status)),
			zap.String("to", string(status)))
		s.vehicles[i].Status = status
		return true
	})
	return found
}

// Subscribe 注册监听器，返回取消函数
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// mutate 在写锁内执行变更，fn 返回 true 时通知监听器
func (s *Store) mutate(fn func() bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	changed := fn()
	var snap Snapshot
	if changed {
		snap = Snapshot{Vehicles: s.copyVehicles(), SimulationEnabled: s.simulating}
	}
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
	return changed
}

// notify 通知监听器，单个监听器 panic 不影响其余监听器
func (s *Store) notify(snap Snapshot) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Store listener panicked", zap.Any("panic", r))
				}
			}()
			l(snap)
		}()
	}
}

// stamp 返回严格晚于 prev 的时间戳
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.clock.Now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) copyVehicles() []models.Vehicle {
	out := make([]models.Vehicle, len(s.vehicles))
	copy(out, s.vehicles)
	return out
}
