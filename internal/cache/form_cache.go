package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"omniops/internal/model"
	rkey "omniops/pkg/redis"
)

// FormCache 公开表单页的表单定义缓存。表单保存后不可修改，所以无需失效逻辑。
// 所有 Redis 错误都只记录日志，调用方回源数据库。
type FormCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewFormCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *FormCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FormCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *FormCache) Get(ctx context.Context, id string) (*model.Form, bool) {
	raw, err := c.rdb.Get(ctx, rkey.Key("form", id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Form cache read failed", zap.String("form_id", id), zap.Error(err))
		}
		return nil, false
	}

	var form model.Form
	if err := json.Unmarshal(raw, &form); err != nil {
		return nil, false
	}
	return &form, true
}

func (c *FormCache) Set(ctx context.Context, form *model.Form) {
	raw, err := json.Marshal(form)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, rkey.Key("form", form.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Form cache write failed", zap.String("form_id", form.ID), zap.Error(err))
	}
}
