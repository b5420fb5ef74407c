package service

import (
	"context"
	"errors"
	"sync"

	mqcontracts "omniops/contracts/mq"
	"omniops/internal/cache"
	"omniops/internal/formbuilder"
	"omniops/internal/model"
	"omniops/pkg/apperr"
	"omniops/pkg/logger"
	"omniops/pkg/mq"

	"go.uber.org/zap"
)

type DraftRepository interface {
	Save(ctx context.Context, b *formbuilder.Builder) error
	Load(ctx context.Context, id string) (*formbuilder.Builder, error)
	Delete(ctx context.Context, id string) error
}

type FormStore interface {
	formbuilder.FormStore
	Get(ctx context.Context, id string) (*model.Form, error)
	List(ctx context.Context) ([]model.Form, error)
}

type FormCache interface {
	Get(ctx context.Context, id string) (*model.Form, bool)
	Set(ctx context.Context, form *model.Form)
}

// FormService 管理表单编辑草稿以及已保存的表单
type FormService struct {
	drafts    DraftRepository
	forms     FormStore
	cache     FormCache
	publisher mq.EventPublisher
	logger    *zap.Logger

	// 草稿是 read-modify-write，串行化避免丢失更新
	mu sync.Mutex
}

func NewFormService(drafts DraftRepository, forms FormStore, cache FormCache, publisher mq.EventPublisher, logger *zap.Logger) *FormService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &FormService{drafts: drafts, forms: forms, cache: cache, publisher: publisher, logger: logger}
}

func mapDraftErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrDraftNotFound):
		return apperr.NotFound("draft_not_found", err.Error())
	case errors.Is(err, formbuilder.ErrFieldNotFound):
		return apperr.NotFound("field_not_found", err.Error())
	case errors.Is(err, formbuilder.ErrUnknownFieldType):
		return apperr.Validation("invalid_field_type", err.Error())
	case errors.Is(err, formbuilder.ErrEmptyTitle):
		return apperr.Validation("empty_title", "Please name your form")
	}
	return apperr.Actionable("draft_failed", "could not update the form draft", err)
}

func (s *FormService) CreateDraft(ctx context.Context) (*formbuilder.Builder, error) {
	b := formbuilder.New()
	if err := s.drafts.Save(ctx, b); err != nil {
		return nil, mapDraftErr(err)
	}
	return b, nil
}

func (s *FormService) GetDraft(ctx context.Context, id string) (*formbuilder.Builder, error) {
	b, err := s.drafts.Load(ctx, id)
	return b, mapDraftErr(err)
}

// edit 加载草稿、修改、写回
func (s *FormService) edit(ctx context.Context, id string, fn func(b *formbuilder.Builder) error) (*formbuilder.Builder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, mapDraftErr(err)
	}
	if err := fn(b); err != nil {
		return nil, mapDraftErr(err)
	}
	if err := s.drafts.Save(ctx, b); err != nil {
		return nil, mapDraftErr(err)
	}
	return b, nil
}

func (s *FormService) AddField(ctx context.Context, draftID string, t model.FieldType) (*formbuilder.Builder, error) {
	return s.edit(ctx, draftID, func(b *formbuilder.Builder) error {
		_, err := b.AddField(t)
		return err
	})
}

func (s *FormService) UpdateLabel(ctx context.Context, draftID, fieldID, label string) (*formbuilder.Builder, error) {
	return s.edit(ctx, draftID, func(b *formbuilder.Builder) error {
		return b.UpdateLabel(fieldID, label)
	})
}

func (s *FormService) RemoveField(ctx context.Context, draftID, fieldID string) (*formbuilder.Builder, error) {
	return s.edit(ctx, draftID, func(b *formbuilder.Builder) error {
		return b.RemoveField(fieldID)
	})
}

// SaveDraft 标题为空时不写库；成功后删除草稿并预热公开页缓存
func (s *FormService) SaveDraft(ctx context.Context, draftID, title string) (*model.Form, error) {
	log := logger.WithTrace(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.drafts.Load(ctx, draftID)
	if err != nil {
		return nil, mapDraftErr(err)
	}

	form, err := b.Save(ctx, s.forms, title)
	if err != nil {
		if !errors.Is(err, formbuilder.ErrEmptyTitle) {
			log.Error("Failed to save form", zap.String("draft_id", draftID), zap.Error(err))
		}
		return nil, mapDraftErr(err)
	}

	if err := s.drafts.Delete(ctx, draftID); err != nil {
		log.Warn("Failed to delete saved draft", zap.String("draft_id", draftID), zap.Error(err))
	}
	s.cache.Set(ctx, form)

	if err := s.publisher.Publish(ctx, mqcontracts.RoutingFormSaved, mqcontracts.FormSavedPayload{
		FormID:     form.ID,
		Title:      form.Title,
		FieldCount: len(form.Fields),
	}); err != nil {
		log.Warn("Failed to publish event", zap.String("routing_key", mqcontracts.RoutingFormSaved), zap.Error(err))
	}
	return form, nil
}

func (s *FormService) List(ctx context.Context) ([]model.Form, error) {
	forms, err := s.forms.List(ctx)
	if err != nil {
		return nil, apperr.Actionable("list_failed", "could not load forms", err)
	}
	return forms, nil
}

// Get 公开页读取表单，优先走缓存
func (s *FormService) Get(ctx context.Context, id string) (*model.Form, error) {
	if form, ok := s.cache.Get(ctx, id); ok {
		return form, nil
	}
	form, err := s.forms.Get(ctx, id)
	if err != nil {
		if apperr.Classify(err).Kind == apperr.KindNotFound {
			return nil, apperr.NotFound("form_not_found", "form not found")
		}
		return nil, apperr.Actionable("load_failed", "could not load form", err)
	}
	s.cache.Set(ctx, form)
	return form, nil
}
