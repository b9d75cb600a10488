// Package simulation 周期驱动车队遥测更新
package simulation

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/evfleet/internal/metrics"
	"github.com/langchou/evfleet/internal/timeutil"
)

// 间隔配置
const (
	MinInterval     = 1000 * time.Millisecond
	MaxInterval     = 5000 * time.Millisecond
	DefaultInterval = 3000 * time.Millisecond

	// RestartDelay 运行中修改间隔后重新启动前的等待时间
	RestartDelay = 100 * time.Millisecond
)

// ErrDriverClosed 驱动已关闭
var ErrDriverClosed = errors.New("simulation driver closed")

// Fleet 驱动所需的车队操作
type Fleet interface {
	UpdateAllActiveTelemetry() int
	SetSimulationEnabled(enabled bool)
	SimulationEnabled() bool
}

// ClampInterval 将间隔限制在 [MinInterval, MaxInterval]
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// ClampIntervalMillis 按毫秒数限制间隔，先在整数域取边界再换算，避免大数溢出
func ClampIntervalMillis(ms int64) time.Duration {
	lo, hi := MinInterval.Milliseconds(), MaxInterval.Milliseconds()
	if ms < lo {
		ms = lo
	}
	if ms > hi {
		ms = hi
	}
	return time.Duration(ms) * time.Millisecond
}

// Driver 模拟驱动
// 任意时刻最多只有一个存活的 ticker
type Driver struct {
	logger  *zap.Logger
	fleet   Fleet
	clock   timeutil.Clock
	machine *Machine

	// opMu 串行化 Start/Stop/SetInterval/Close 等操作
	opMu sync.Mutex

	// mu 保护下列字段；持有 mu 时不能回调 fleet
	mu       sync.Mutex
	interval time.Duration
	ticker   timeutil.Ticker
	stopCh   chan struct{}
	restart  timeutil.Timer
	err      error
	closed   bool

	wg    sync.WaitGroup
	ticks atomic.Uint64
}

// NewDriver 创建驱动，interval 会被限制到合法区间
func NewDriver(fleet Fleet, clock timeutil.Clock, interval time.Duration, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval == 0 {
		interval = DefaultInterval
	}

	d := &Driver{
		logger:   logger,
		fleet:    fleet,
		clock:    clock,
		interval: ClampInterval(interval),
	}
	d.machine = NewMachine(clock, d.onStateChange)
	return d
}

// Start 启动模拟；已在运行时先取消旧 ticker 再重新调度
func (d *Driver) Start() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	if err := d.start(); err != nil {
		d.setErr(err)
		return err
	}
	d.fleet.SetSimulationEnabled(true)
	d.setErr(nil)
	return nil
}

// Stop 停止模拟，返回前等待进行中的 tick 完成
func (d *Driver) Stop() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	if err := d.stop(); err != nil {
		d.setErr(err)
		return err
	}
	// 状态已是 stopped，挂起的重启不会再创建循环
	d.wg.Wait()
	d.fleet.SetSimulationEnabled(false)
	d.setErr(nil)
	return nil
}

// Toggle 切换运行状态
func (d *Driver) Toggle() error {
	if d.IsRunning() {
		return d.Stop()
	}
	return d.Start()
}

// Resume 若车队模拟开关已打开但驱动未运行，则启动驱动
func (d *Driver) Resume() error {
	if d.fleet.SimulationEnabled() && !d.IsRunning() {
		return d.Start()
	}
	return nil
}

// SetInterval 设置 tick 间隔，返回限制后的值
// 运行中修改时停止当前 ticker，RestartDelay 后以新间隔重新启动
func (d *Driver) SetInterval(interval time.Duration) time.Duration {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	clamped := ClampInterval(interval)

	d.mu.Lock()
	defer d.mu.Unlock()

	if clamped == d.interval {
		return clamped
	}
	d.interval = clamped
	d.logger.Info("Simulation interval changed", zap.Duration("interval", clamped))

	if d.closed || d.machine.Current() != StateRunning {
		return clamped
	}

	d.stopLoopLocked()
	d.cancelRestartLocked()

	var timer timeutil.Timer
	timer = d.clock.AfterFunc(RestartDelay, func() { d.restartAfterDelay(timer) })
	d.restart = timer
	return clamped
}

// restartAfterDelay 延迟重启回调；若期间已停止、关闭或被新的重启覆盖则放弃
func (d *Driver) restartAfterDelay(timer timeutil.Timer) {
	d.opMu.Lock()
	defer d.opMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.restart != timer || d.closed || d.machine.Current() != StateRunning {
		return
	}
	d.restart = nil
	d.startLoopLocked()
	d.logger.Info("Simulation restarted", zap.Duration("interval", d.interval))
}

// Interval 当前 tick 间隔
func (d *Driver) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// IsRunning 是否处于运行状态
func (d *Driver) IsRunning() bool {
	return d.machine.Current() == StateRunning
}

// RunningSince 本次运行的开始时间，未运行时返回 false
func (d *Driver) RunningSince() (time.Time, bool) {
	state, since := d.machine.Since()
	if state != StateRunning {
		return time.Time{}, false
	}
	return since, true
}

// Err 最近一次启动/停止/tick 失败的错误
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ClearError 清除错误
func (d *Driver) ClearError() {
	d.setErr(nil)
}

// Ticks 已执行的 tick 数
func (d *Driver) Ticks() uint64 {
	return d.ticks.Load()
}

// Close 取消 ticker 与待执行的重启并等待 tick 循环退出，可重复调用
func (d *Driver) Close() {
	d.opMu.Lock()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.opMu.Unlock()
		return
	}
	d.closed = true
	d.cancelRestartLocked()
	d.stopLoopLocked()
	d.mu.Unlock()

	if d.machine.Can(EventStop) {
		if err := d.machine.Trigger(EventStop); err != nil {
			d.logger.Warn("Failed to stop simulation machine on close", zap.Error(err))
		}
	}
	d.opMu.Unlock()

	d.wg.Wait()
	d.logger.Info("Simulation driver closed")
}

// start 调度新的 ticker 并迁移到 running
func (d *Driver) start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("start simulation: %w", ErrDriverClosed)
	}

	d.cancelRestartLocked()
	d.stopLoopLocked()

	if d.machine.Can(EventStart) {
		if err := d.machine.Trigger(EventStart); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
	}

	d.startLoopLocked()
	d.logger.Info("Simulation started", zap.Duration("interval", d.interval))
	return nil
}

// stop 取消 ticker 并迁移到 stopped
func (d *Driver) stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelRestartLocked()
	d.stopLoopLocked()

	if d.machine.Can(EventStop) {
		if err := d.machine.Trigger(EventStop); err != nil {
			return fmt.Errorf("stop simulation: %w", err)
		}
		d.logger.Info("Simulation stopped", zap.Uint64("ticks", d.ticks.Load()))
	}
	return nil
}

// startLoopLocked 创建 ticker 与 tick 循环，调用方持有 mu
func (d *Driver) startLoopLocked() {
	ticker := d.clock.NewTicker(d.interval)
	stopCh := make(chan struct{})
	d.ticker = ticker
	d.stopCh = stopCh

	d.wg.Add(1)
	go d.loop(ticker, stopCh)
}

// stopLoopLocked 停止当前 ticker，调用方持有 mu
func (d *Driver) stopLoopLocked() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.stopCh)
	d.ticker = nil
	d.stopCh = nil
}

func (d *Driver) cancelRestartLocked() {
	if d.restart != nil {
		d.restart.Stop()
		d.restart = nil
	}
}

// loop tick 循环
func (d *Driver) loop(ticker timeutil.Ticker, stopCh <-chan struct{}) {
	defer d.wg.Done()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			// 已停止时丢弃缓冲中的 tick
			select {
			case <-stopCh:
				return
			default:
			}
			d.tick()
		}
	}
}

// tick 执行一次遥测更新，panic 被恢复并记录到错误槽
func (d *Driver) tick() {
	defer func() {
		if r := recover(); r != nil {
			metrics.SimulationTickFailures.Inc()
			err := fmt.Errorf("simulation tick: %v", r)
			d.logger.Error("Simulation tick failed", zap.Error(err))
			d.setErr(err)
		}
	}()

	updated := d.fleet.UpdateAllActiveTelemetry()
	d.ticks.Add(1)
	metrics.SimulationTicks.Inc()
	metrics.TelemetryUpdates.Add(float64(updated))
}

func (d *Driver) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// onStateChange 状态变化回调
func (d *Driver) onStateChange(from, to string) {
	d.logger.Debug("Simulation state changed", zap.String("from", from), zap.String("to", to))
}
