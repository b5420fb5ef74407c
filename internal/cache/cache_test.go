package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"omniops/internal/formbuilder"
	"omniops/internal/model"
)

// unreachable 指向一个没人监听的端口，所有命令都会立刻失败
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestDeduper_AllowsWhenRedisDown(t *testing.T) {
	d := NewDeduper(unreachable(t), 0, zap.NewNop())
	ctx := context.Background()

	assert.True(t, d.AcquireOnce(ctx, "submission", "k"))
	assert.True(t, d.AcquireOnce(ctx, "submission", "k"), "dedup never blocks processing")
	d.Release(ctx, "submission", "k")
}

func TestFormCache_MissWhenRedisDown(t *testing.T) {
	c := NewFormCache(unreachable(t), 0, zap.NewNop())
	ctx := context.Background()

	c.Set(ctx, &model.Form{ID: "f1", Title: "x"})
	_, ok := c.Get(ctx, "f1")
	assert.False(t, ok)
}

func TestDraftStore_SurfacesRedisErrors(t *testing.T) {
	s := NewDraftStore(unreachable(t), 0)
	ctx := context.Background()

	err := s.Save(ctx, formbuilder.New())
	require.Error(t, err)

	_, err = s.Load(ctx, "missing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDraftNotFound)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "omniops:draft:abc", draftKey("abc"))
}

func TestRetryCounter_ErrorsWhenRedisDown(t *testing.T) {
	r := NewRetryCounter(unreachable(t), 0)
	_, err := r.IncrementAndGet(context.Background(), "e1")
	assert.Error(t, err)
}
