// Package activity 把领域事件整理成仪表盘上的最近动态。
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	rkey "omniops/pkg/redis"
)

const DefaultCapacity = 100

type Entry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	RecordID   string    `json:"record_id,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Reader 读取最近的动态，新的在前
type Reader interface {
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// Feed 用 Redis list 保存最近 capacity 条动态
type Feed struct {
	rdb      *redis.Client
	capacity int64
}

func NewFeed(rdb *redis.Client, capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{rdb: rdb, capacity: int64(capacity)}
}

func feedKey() string { return rkey.Key("activity") }

func (f *Feed) Push(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, feedKey(), raw)
		p.LTrim(ctx, feedKey(), 0, f.capacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push activity: %w", err)
	}
	return nil
}

func (f *Feed) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 || int64(n) > f.capacity {
		n = int(f.capacity)
	}
	raws, err := f.rdb.LRange(ctx, feedKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read activity: %w", err)
	}

	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
