// Package timeutil 提供可测试的时间抽象（时钟、周期 ticker、延迟回调）
package timeutil

import (
	"sync"
	"time"
)

// Clock 时间操作抽象
type Clock interface {
	// Now 当前时间
	Now() time.Time

	// NewTicker 创建周期 ticker
	NewTicker(d time.Duration) Ticker

	// AfterFunc 在 d 之后于独立 goroutine 调用 f，返回可取消的定时器
	AfterFunc(d time.Duration, f func()) Timer
}

// Ticker 周期触发器
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer 可取消的延迟回调
type Timer interface {
	// Stop 阻止回调执行，若回调尚未执行返回 true
	Stop() bool
}

// RealClock 基于标准库 time 的实现
type RealClock struct{}

// Now 当前时间
func (RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker 创建 ticker
func (RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

// AfterFunc 创建延迟回调
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

// MockClock 手动推进的测试时钟
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
	timers  []*MockTimer
}

// NewMockClock 创建测试时钟
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now 当前模拟时间
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set 设置模拟时间（不触发定时器）
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance 推进时间并触发到期的 ticker 和延迟回调
// 延迟回调在调用方 goroutine 中同步执行
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*MockTicker(nil), c.tickers...)
	timers := append([]*MockTimer(nil), c.timers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.checkAndFire(now)
	}

	var due []*MockTimer
	for _, t := range timers {
		if t.expire(now) {
			due = append(due, t)
		}
	}
	c.prune()

	for _, t := range due {
		t.fn()
	}
}

// NewTicker 创建模拟 ticker
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		nextTick: c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// AfterFunc 创建模拟延迟回调
func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTimer{deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// ActiveTickers 未停止的 ticker 数量
func (c *MockClock) ActiveTickers() int {
	c.prune()
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// PendingTimers 尚未触发且未取消的延迟回调数量
func (c *MockClock) PendingTimers() int {
	c.prune()
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *MockClock) prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	tickers := c.tickers[:0]
	for _, t := range c.tickers {
		if !t.isStopped() {
			tickers = append(tickers, t)
		}
	}
	c.tickers = tickers

	timers := c.timers[:0]
	for _, t := range c.timers {
		if t.isPending() {
			timers = append(timers, t)
		}
	}
	c.timers = timers
}

// MockTicker 模拟 ticker
type MockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	nextTick time.Time
	stopped  bool
}

// C ticker channel
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop 停止 ticker
func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *MockTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *MockTicker) checkAndFire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.nextTick) {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
	t.nextTick = now.Add(t.interval)
}

// MockTimer 模拟延迟回调
type MockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// Stop 取消回调
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

func (t *MockTimer) isPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped && !t.fired
}

func (t *MockTimer) expire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.fired || now.Before(t.deadline) {
		return false
	}
	t.fired = true
	return true
}
