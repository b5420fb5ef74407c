// Package optimistic 实现乐观更新：先改本地状态，再写存储，写失败则回滚。
//
// 每次修改在 Ledger 中留下一条 Mutation，状态 pending → confirmed / failed。
package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"omniops/internal/model"
	"omniops/pkg/metrics"
)

type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

type Mutation struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Kind      string    `json:"kind"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	Reverted  bool      `json:"reverted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const defaultRetention = 500

type Ledger struct {
	mu        sync.Mutex
	byID      map[string]*Mutation
	order     []string
	retention int
	now       func() time.Time
}

// NewLedger retention 为保留的最近 mutation 条数
func NewLedger(retention int) *Ledger {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Ledger{
		byID:      make(map[string]*Mutation),
		retention: retention,
		now:       time.Now,
	}
}

func (l *Ledger) begin(recordID, kind string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	m := &Mutation{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Kind:      kind,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.byID[m.ID] = m
	l.order = append(l.order, m.ID)

	for len(l.order) > l.retention {
		delete(l.byID, l.order[0])
		l.order = l.order[1:]
	}
	return m.ID
}

func (l *Ledger) finish(id, recordID string, err error, reverted bool) Mutation {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		// 已被淘汰，只返回结果
		m = &Mutation{ID: id, RecordID: recordID}
	}
	if recordID != "" {
		m.RecordID = recordID
	}
	m.UpdatedAt = l.now()
	m.Reverted = reverted
	if err != nil {
		m.State = StateFailed
		m.Error = err.Error()
	} else {
		m.State = StateConfirmed
	}
	metrics.IncrementMutationOutcome(m.Kind, string(m.State))
	return *m
}

// Track 记录一次非乐观的修改（例如需要存储返回 id 的 create）
// fn 返回最终的 record id
func (l *Ledger) Track(ctx context.Context, kind string, fn func(ctx context.Context) (string, error)) (Mutation, error) {
	id := l.begin("", kind)
	recordID, err := fn(ctx)
	return l.finish(id, recordID, err, false), err
}

// Apply 乐观地把 next 写进 mirror（next 为 nil 表示删除），然后调用 persist。
// persist 失败时 mirror 回滚到修改前的值，返回 persist 的错误。
func (l *Ledger) Apply(ctx context.Context, mirror *Mirror, kind, recordID string, next *model.Item, persist func(ctx context.Context) error) (Mutation, error) {
	var prev *model.Item
	if it, ok := mirror.Get(recordID); ok {
		prev = &it
	}

	if next == nil {
		mirror.Remove(recordID)
	} else {
		mirror.Put(*next)
	}
	id := l.begin(recordID, kind)

	if err := persist(ctx); err != nil {
		reverted := mirror.compareAndRestore(recordID, next, prev)
		return l.finish(id, recordID, err, reverted), err
	}
	return l.finish(id, recordID, nil, false), nil
}

// ForRecord 返回某条记录的 mutation，新的在前
func (l *Ledger) ForRecord(recordID string) []Mutation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Mutation{}
	for i := len(l.order) - 1; i >= 0; i-- {
		if m := l.byID[l.order[i]]; m != nil && m.RecordID == recordID {
			out = append(out, *m)
		}
	}
	return out
}

// Recent 最近 n 条 mutation，新的在前
func (l *Ledger) Recent(n int) []Mutation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := []Mutation{}
	for i := len(l.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *l.byID[l.order[i]])
	}
	return out
}
