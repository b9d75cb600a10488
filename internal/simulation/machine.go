package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/langchou/evfleet/internal/timeutil"
)

// 模拟状态常量
const (
	StateStopped = "stopped"
	StateRunning = "running"
)

// 事件常量
const (
	EventStart = "start"
	EventStop  = "stop"
)

// Machine 模拟生命周期状态机
type Machine struct {
	mu            sync.RWMutex
	fsm           *fsm.FSM
	clock         timeutil.Clock
	since         time.Time
	onStateChange func(from, to string)
}

// NewMachine 创建状态机，初始为 stopped
func NewMachine(clock timeutil.Clock, onStateChange func(from, to string)) *Machine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	m := &Machine{
		onStateChange: onStateChange,
		clock:         clock,
		since:         clock.Now(),
	}

	m.fsm = fsm.NewFSM(
		StateStopped,
		fsm.Events{
			{Name: EventStart, Src: []string{StateStopped}, Dst: StateRunning},
			{Name: EventStop, Src: []string{StateRunning}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 当前状态
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// Since 当前状态及进入该状态的时间
func (m *Machine) Since() (string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current(), m.since
}

// Trigger 触发事件
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}
	m.since = m.clock.Now()
	return nil
}

// Can 检查是否可以触发事件
func (m *Machine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
