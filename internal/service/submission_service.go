package service

import (
	"context"

	mqcontracts "omniops/contracts/mq"
	"omniops/internal/model"
	"omniops/internal/render"
	"omniops/pkg/apperr"
	"omniops/pkg/logger"
	"omniops/pkg/metrics"
	"omniops/pkg/mq"

	"go.uber.org/zap"
)

type SubmissionStore interface {
	Insert(ctx context.Context, formID string, data map[string]any) (*model.Submission, error)
	ListWithForms(ctx context.Context) ([]model.SubmissionWithForm, error)
	GetWithForm(ctx context.Context, id string) (*model.SubmissionWithForm, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, scope, key string) bool
	Release(ctx context.Context, scope, key string)
}

const submitScope = "submission"

type SubmissionService struct {
	store     SubmissionStore
	dedup     Deduper
	publisher mq.EventPublisher
	logger    *zap.Logger
}

func NewSubmissionService(store SubmissionStore, dedup Deduper, publisher mq.EventPublisher, logger *zap.Logger) *SubmissionService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &SubmissionService{store: store, dedup: dedup, publisher: publisher, logger: logger}
}

// Submit 无条件写入，不校验答案是否匹配表单字段。
// idempotencyKey 非空时同一个 key 只写一次，重复请求返回 duplicate=true。
func (s *SubmissionService) Submit(ctx context.Context, formID string, data map[string]any, idempotencyKey string) (sub *model.Submission, duplicate bool, err error) {
	log := logger.WithTrace(ctx, s.logger)

	dedupKey := ""
	if idempotencyKey != "" {
		dedupKey = formID + ":" + idempotencyKey
		if !s.dedup.AcquireOnce(ctx, submitScope, dedupKey) {
			metrics.IncrementSubmission("duplicate")
			return nil, true, nil
		}
	}

	sub, err = s.store.Insert(ctx, formID, data)
	if err != nil {
		metrics.IncrementSubmission("failed")
		if dedupKey != "" {
			s.dedup.Release(ctx, submitScope, dedupKey)
		}
		log.Error("Failed to store submission", zap.String("form_id", formID), zap.Error(err))
		return nil, false, apperr.Actionable("submit_failed", "Error submitting form", err)
	}
	metrics.IncrementSubmission("stored")

	if err := s.publisher.Publish(ctx, mqcontracts.RoutingSubmissionReceived, mqcontracts.SubmissionReceivedPayload{
		SubmissionID: sub.ID,
		FormID:       formID,
		AnswerCount:  len(sub.Data),
	}); err != nil {
		log.Warn("Failed to publish event", zap.String("routing_key", mqcontracts.RoutingSubmissionReceived), zap.Error(err))
	}
	return sub, false, nil
}

// Inbox 收件箱列表，新的在前
func (s *SubmissionService) Inbox(ctx context.Context) ([]render.SubmissionSummary, error) {
	subs, err := s.store.ListWithForms(ctx)
	if err != nil {
		return nil, apperr.Actionable("list_failed", "could not load submissions", err)
	}
	out := make([]render.SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		out = append(out, render.Summarize(sub))
	}
	return out, nil
}

func (s *SubmissionService) View(ctx context.Context, id string) (*render.SubmissionView, error) {
	sub, err := s.store.GetWithForm(ctx, id)
	if err != nil {
		if apperr.Classify(err).Kind == apperr.KindNotFound {
			return nil, apperr.NotFound("submission_not_found", "submission not found")
		}
		return nil, apperr.Actionable("load_failed", "could not load submission", err)
	}
	view := render.Submission(*sub)
	return &view, nil
}
