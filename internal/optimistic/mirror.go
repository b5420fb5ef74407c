package optimistic

import (
	"sort"
	"sync"

	"omniops/internal/model"
)

// Mirror 仪表盘看到的本地 item 列表
type Mirror struct {
	mu     sync.RWMutex
	items  map[string]model.Item
	loaded bool
}

func NewMirror() *Mirror {
	return &Mirror{items: make(map[string]model.Item)}
}

// Replace 用存储中的完整列表覆盖本地状态
func (m *Mirror) Replace(items []model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]model.Item, len(items))
	for _, it := range items {
		m.items[it.ID] = it
	}
	m.loaded = true
}

func (m *Mirror) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

func (m *Mirror) Get(id string) (model.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	return it, ok
}

func (m *Mirror) Put(it model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

func (m *Mirror) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
}

// compareAndRestore 只有当前值仍是 expected 时才回滚，避免覆盖别的并发修改
func (m *Mirror) compareAndRestore(id string, expected *model.Item, prev *model.Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.items[id]
	switch {
	case expected == nil && ok:
		return false
	case expected != nil && (!ok || cur != *expected):
		return false
	}

	if prev == nil {
		delete(m.items, id)
	} else {
		m.items[id] = *prev
	}
	return true
}

// Snapshot 按 created_at 倒序返回全部 item
func (m *Mirror) Snapshot() []model.Item {
	m.mu.RLock()
	out := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
