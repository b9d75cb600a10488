package filter

import "sync"

// Target 筛选条件的外部同步目标（如地址栏查询串）
type Target interface {
	// Read 读取当前外部查询串
	Read() string
	// Push 写入新的查询串
	Push(query string)
}

// Navigator 支持前进/后退通知的外部目标
type Navigator interface {
	OnNavigate(fn func(query string))
}

// History 内存中的导航历史，模拟浏览器 history 栈
type History struct {
	mu         sync.Mutex
	entries    []string
	cursor     int
	onNavigate func(query string)
}

// NewHistory 以初始查询串创建历史
func NewHistory(initial string) *History {
	return &History{entries: []string{initial}}
}

// Read 当前条目
func (h *History) Read() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// Push 追加条目并丢弃前进方向的条目；与当前条目相同时忽略
func (h *History) Push(query string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.entries[h.cursor] == query {
		return
	}
	h.entries = append(h.entries[:h.cursor+1], query)
	h.cursor++
}

// OnNavigate 注册前进/后退回调
func (h *History) OnNavigate(fn func(query string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNavigate = fn
}

// Back 后退一步，已在最早条目时返回 false
func (h *History) Back() bool {
	return h.move(-1)
}

// Forward 前进一步，已在最新条目时返回 false
func (h *History) Forward() bool {
	return h.move(1)
}

// Entries 全部条目副本及当前位置
func (h *History) Entries() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...), h.cursor
}

func (h *History) move(step int) bool {
	h.mu.Lock()
	next := h.cursor + step
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.cursor = next
	query := h.entries[next]
	fn := h.onNavigate
	h.mu.Unlock()

	// 回调中可能回读 History，需在锁外调用
	if fn != nil {
		fn(query)
	}
	return true
}
