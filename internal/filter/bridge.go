package filter

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/evfleet/internal/metrics"
	"github.com/langchou/evfleet/internal/models"
	"github.com/langchou/evfleet/internal/timeutil"
)

// 默认防抖时间
const (
	DefaultSettleDelay = 150 * time.Millisecond
	DefaultSyncDelay   = 300 * time.Millisecond
)

// Bridge 维护 pending / committed 两份筛选条件
//
// pending 立即反映用户操作；静默 settleDelay 后提交为 committed，
// 再静默 syncDelay 后写入外部目标。外部目标的前进/后退会直接覆盖两份状态。
type Bridge struct {
	logger      *zap.Logger
	clock       timeutil.Clock
	target      Target
	settleDelay time.Duration
	syncDelay   time.Duration

	mu          sync.Mutex
	pending     models.FilterState
	committed   models.FilterState
	settleTimer timeutil.Timer
	syncTimer   timeutil.Timer
	settleGen   uint64
	syncGen     uint64
	closed      bool

	listenersMu sync.Mutex
	listeners   []func(models.FilterState)
}

// NewBridge 创建桥接器，初始状态从 target 读取
func NewBridge(target Target, clock timeutil.Clock, settleDelay, syncDelay time.Duration, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	if syncDelay <= 0 {
		syncDelay = DefaultSyncDelay
	}

	initial := Decode(target.Read())
	b := &Bridge{
		logger:      logger,
		clock:       clock,
		target:      target,
		settleDelay: settleDelay,
		syncDelay:   syncDelay,
		pending:     initial,
		committed:   initial.Clone(),
	}

	if nav, ok := target.(Navigator); ok {
		nav.OnNavigate(func(string) { b.HandleExternalChange() })
	}
	return b
}

// Pending 立即生效的筛选条件（用于界面回显）
func (b *Bridge) Pending() models.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Clone()
}

// Committed 防抖后生效的筛选条件（用于实际过滤）
func (b *Bridge) Committed() models.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed.Clone()
}

// OnCommit 注册提交回调
func (b *Bridge) OnCommit(fn func(models.FilterState)) {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// ToggleStatus 切换状态筛选项
func (b *Bridge) ToggleStatus(value string) models.FilterState {
	return b.update(func(f models.FilterState) models.FilterState { return ToggleStatus(f, value) })
}

// ToggleCharging 切换充电筛选项
func (b *Bridge) ToggleCharging(value string) models.FilterState {
	return b.update(func(f models.FilterState) models.FilterState { return ToggleCharging(f, value) })
}

// Clear 清空筛选
func (b *Bridge) Clear() models.FilterState {
	return b.update(func(models.FilterState) models.FilterState { return Clear() })
}

// SetPending 整体替换 pending
func (b *Bridge) SetPending(f models.FilterState) models.FilterState {
	return b.update(func(models.FilterState) models.FilterState { return f.Clone() })
}

// HandleExternalChange 外部状态变化（前进/后退）时重新读取并覆盖本地状态
func (b *Bridge) HandleExternalChange() {
	query := b.target.Read()
	f := Decode(query)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.stopTimersLocked()
	b.pending = f
	b.committed = f.Clone()
	b.mu.Unlock()

	b.logger.Info("Filters restored from navigation", zap.String("query", query))
	b.notify(f.Clone())
}

// Flush 立即提交 pending 并写入外部目标
func (b *Bridge) Flush() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.stopTimersLocked()
	b.committed = b.pending.Clone()
	committed := b.committed.Clone()
	b.mu.Unlock()

	metrics.FilterCommits.Inc()
	b.notify(committed)
	b.write(committed)
}

// Close 取消所有待执行的防抖回调
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopTimersLocked()
}

// update 修改 pending 并重置 settle 定时器
func (b *Bridge) update(fn func(models.FilterState) models.FilterState) models.FilterState {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = fn(b.pending)
	if b.closed {
		return b.pending.Clone()
	}

	if b.settleTimer != nil {
		b.settleTimer.Stop()
	}
	b.settleGen++
	gen := b.settleGen
	b.settleTimer = b.clock.AfterFunc(b.settleDelay, func() { b.settle(gen) })
	return b.pending.Clone()
}

// settle pending → committed，并调度外部写入
func (b *Bridge) settle(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.settleGen {
		b.mu.Unlock()
		return
	}
	b.settleTimer = nil
	b.committed = b.pending.Clone()
	committed := b.committed.Clone()

	if b.syncTimer != nil {
		b.syncTimer.Stop()
	}
	b.syncGen++
	syncGen := b.syncGen
	b.syncTimer = b.clock.AfterFunc(b.syncDelay, func() { b.sync(syncGen) })
	b.mu.Unlock()

	metrics.FilterCommits.Inc()
	b.logger.Debug("Filters committed", zap.String("query", Encode(committed)))
	b.notify(committed)
}

// sync committed → 外部目标
func (b *Bridge) sync(gen uint64) {
	b.mu.Lock()
	if b.closed || gen != b.syncGen {
		b.mu.Unlock()
		return
	}
	b.syncTimer = nil
	committed := b.committed.Clone()
	b.mu.Unlock()

	b.write(committed)
}

func (b *Bridge) write(f models.FilterState) {
	query := Encode(f)
	b.target.Push(query)
	metrics.FilterSyncWrites.Inc()
	b.logger.Debug("Filters synced to external state", zap.String("query", query))
}

func (b *Bridge) stopTimersLocked() {
	if b.settleTimer != nil {
		b.settleTimer.Stop()
		b.settleTimer = nil
	}
	if b.syncTimer != nil {
		b.syncTimer.Stop()
		b.syncTimer = nil
	}
	// 使已触发但尚未拿到锁的回调失效
	b.settleGen++
	b.syncGen++
}

func (b *Bridge) notify(f models.FilterState) {
	b.listenersMu.Lock()
	listeners := append([]func(models.FilterState){}, b.listeners...)
	b.listenersMu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Filter commit listener panicked", zap.Any("panic", r))
				}
			}()
			fn(f)
		}()
	}
}
