package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"omniops/internal/formbuilder"
	rkey "omniops/pkg/redis"
)

var ErrDraftNotFound = errors.New("form draft not found or expired")

// DraftStore 把表单编辑器草稿以 JSON 存在 Redis，带 TTL
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(id string) string {
	return rkey.Key("draft", id)
}

func (s *DraftStore) Save(ctx context.Context, b *formbuilder.Builder) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, draftKey(b.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Load(ctx context.Context, id string) (*formbuilder.Builder, error) {
	raw, err := s.rdb.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	var b formbuilder.Builder
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &b, nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, draftKey(id)).Err()
}
