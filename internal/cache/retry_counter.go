package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	rkey "omniops/pkg/redis"
)

// RetryCounter 记录事件处理失败次数，供消费者决定何时转入死信队列
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet 第一次计数时设置过期时间
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	k := rkey.Key("retry", key)
	count, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, k, r.ttl)
	}
	return count, nil
}

func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, rkey.Key("retry", key)).Err()
}
