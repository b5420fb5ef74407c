package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"omniops/pkg/logger"
	"omniops/pkg/mq"
)

type Store interface {
	Push(ctx context.Context, e Entry) error
}

// Deduper 重复投递的同一事件只写一次
type Deduper interface {
	AcquireOnce(ctx context.Context, scope, key string) bool
	Release(ctx context.Context, scope, key string)
}

const dedupScope = "activity"

type Recorder struct {
	store  Store
	dedup  Deduper
	logger *zap.Logger
}

func NewRecorder(store Store, dedup Deduper, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, dedup: dedup, logger: logger}
}

// Handle 作为 mq.EnvelopeHandler 使用；无法识别的事件标记为 permanent
func (r *Recorder) Handle(ctx context.Context, env mq.Envelope) error {
	log := logger.WithTrace(ctx, r.logger)

	entry, err := Describe(env)
	if err != nil {
		return fmt.Errorf("%w: %w", err, mq.ErrPermanent)
	}

	if !r.dedup.AcquireOnce(ctx, dedupScope, env.ID) {
		return nil
	}
	if err := r.store.Push(ctx, entry); err != nil {
		r.dedup.Release(ctx, dedupScope, env.ID)
		return err
	}

	log.Debug("Activity recorded",
		zap.String("event_id", env.ID),
		zap.String("kind", env.RoutingKey),
	)
	return nil
}
