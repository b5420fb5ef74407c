package service

import (
	"context"
	"errors"
	"strings"

	mqcontracts "omniops/contracts/mq"
	"omniops/internal/inference"
	"omniops/internal/model"
	"omniops/internal/optimistic"
	"omniops/internal/pipeline"
	"omniops/pkg/apperr"
	"omniops/pkg/logger"
	"omniops/pkg/metrics"
	"omniops/pkg/mq"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ItemStore item 的持久化
type ItemStore interface {
	List(ctx context.Context) ([]model.Item, error)
	Insert(ctx context.Context, it *model.Item) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

type ItemService struct {
	store     ItemStore
	ai        inference.Generator
	mirror    *optimistic.Mirror
	ledger    *optimistic.Ledger
	publisher mq.EventPublisher
	logger    *zap.Logger
	loads     singleflight.Group
}

func NewItemService(
	store ItemStore,
	ai inference.Generator,
	ledger *optimistic.Ledger,
	publisher mq.EventPublisher,
	logger *zap.Logger,
) *ItemService {
	if publisher == nil {
		publisher = mq.NopPublisher{}
	}
	return &ItemService{
		store:     store,
		ai:        ai,
		mirror:    optimistic.NewMirror(),
		ledger:    ledger,
		publisher: publisher,
		logger:    logger,
	}
}

type CreateItemInput struct {
	Title    string
	Category model.Category
	WithAI   bool
}

// ItemResult 修改接口的统一返回；Mutation 为 nil 表示 no-op
type ItemResult struct {
	Item     model.Item           `json:"item"`
	Mutation *optimistic.Mutation `json:"mutation,omitempty"`
	AI       *inference.Result    `json:"ai,omitempty"`
}

// InstructionFor 创建 item 时传给 AI 的指令
func InstructionFor(c model.Category) string {
	if c == model.CategoryLead {
		return inference.ContextSalesLead
	}
	return inference.ContextTaskPlan
}

// InitialStatus 新建 item 的初始状态
func InitialStatus(c model.Category) string {
	if c == model.CategoryLead {
		return string(pipeline.First())
	}
	return model.StatusTodo
}

// load 首次访问或 force 时从存储加载 mirror；并发加载合并为一次
func (s *ItemService) load(ctx context.Context, force bool) error {
	if !force && s.mirror.Loaded() {
		return nil
	}
	_, err, _ := s.loads.Do("items", func() (interface{}, error) {
		items, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		s.mirror.Replace(items)
		return nil, nil
	})
	if err != nil {
		return apperr.Actionable("load_failed", "could not load items", err)
	}
	return nil
}

// List category 为空时返回全部
func (s *ItemService) List(ctx context.Context, category model.Category, refresh bool) ([]model.Item, error) {
	if category != "" && !category.Valid() {
		return nil, apperr.Validation("invalid_category", "category must be task or lead")
	}
	if err := s.load(ctx, refresh); err != nil {
		return nil, err
	}

	items := s.mirror.Snapshot()
	if category == "" {
		return items, nil
	}
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *ItemService) Create(ctx context.Context, in CreateItemInput) (*ItemResult, error) {
	log := logger.WithTrace(ctx, s.logger)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("empty_title", "title is required")
	}
	if !in.Category.Valid() {
		return nil, apperr.Validation("invalid_category", "category must be task or lead")
	}

	it := model.Item{
		Title:    title,
		Status:   InitialStatus(in.Category),
		Category: in.Category,
	}

	res := &ItemResult{}
	if in.WithAI {
		gen := s.ai.Generate(ctx, title, InstructionFor(in.Category))
		it.Description = gen.Text
		res.AI = &gen
	}

	mut, err := s.ledger.Track(ctx, "create", func(ctx context.Context) (string, error) {
		if err := s.store.Insert(ctx, &it); err != nil {
			return "", err
		}
		return it.ID, nil
	})
	if err != nil {
		log.Error("Create item failed", zap.String("category", string(it.Category)), zap.Error(err))
		return nil, apperr.Actionable("persist_failed", "could not save item", err)
	}

	s.mirror.Put(it)
	metrics.IncrementItemCreated(string(it.Category), in.WithAI)
	s.publish(ctx, mqcontracts.RoutingItemCreated, mqcontracts.ItemCreatedPayload{
		ItemID:   it.ID,
		Title:    it.Title,
		Category: string(it.Category),
		Status:   it.Status,
		AIFilled: in.WithAI,
	})

	log.Info("Item created",
		zap.String("item_id", it.ID),
		zap.String("category", string(it.Category)),
		zap.Bool("ai", in.WithAI),
	)
	res.Item = it
	res.Mutation = &mut
	return res, nil
}

func (s *ItemService) get(ctx context.Context, id string) (model.Item, error) {
	if err := s.load(ctx, false); err != nil {
		return model.Item{}, err
	}
	it, ok := s.mirror.Get(id)
	if !ok {
		return model.Item{}, apperr.NotFound("item_not_found", "item not found")
	}
	return it, nil
}

// ToggleTask todo ↔ done
func (s *ItemService) ToggleTask(ctx context.Context, id string) (*ItemResult, error) {
	it, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Category != model.CategoryTask {
		return nil, apperr.Validation("not_a_task", "only tasks can be toggled")
	}

	next := it
	next.Status = model.StatusDone
	if it.Status == model.StatusDone {
		next.Status = model.StatusTodo
	}
	return s.changeStatus(ctx, "toggle", mqcontracts.RoutingItemToggled, it, next)
}

// MoveLead 沿 pipeline 前进或后退一格；首末阶段返回原 item 且不产生 mutation
func (s *ItemService) MoveLead(ctx context.Context, id string, direction string) (*ItemResult, error) {
	dir, err := pipeline.ParseDirection(direction)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Code: "invalid_direction", Message: err.Error(), Err: err}
	}

	it, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.Category != model.CategoryLead {
		return nil, apperr.Validation("not_a_lead", "only leads can be moved along the pipeline")
	}

	to, changed, err := pipeline.Move(it.Status, dir)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Code: "unknown_stage", Message: err.Error(), Err: err}
	}
	if !changed {
		return &ItemResult{Item: it}, nil
	}

	next := it
	next.Status = string(to)
	res, err := s.changeStatus(ctx, "move", mqcontracts.RoutingItemMoved, it, next)
	if err == nil {
		metrics.IncrementPipelineMove(it.Status, next.Status)
	}
	return res, err
}

func (s *ItemService) changeStatus(ctx context.Context, kind, routingKey string, prev, next model.Item) (*ItemResult, error) {
	log := logger.WithTrace(ctx, s.logger)

	mut, err := s.ledger.Apply(ctx, s.mirror, kind, next.ID, &next, func(ctx context.Context) error {
		return s.store.UpdateStatus(ctx, next.ID, next.Status)
	})
	if err != nil {
		log.Warn("Status change rolled back",
			zap.String("item_id", next.ID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		if apperr.Classify(err).Kind == apperr.KindNotFound {
			// 其他会话已经删除
			s.mirror.Remove(next.ID)
			return nil, apperr.NotFound("item_not_found", "item no longer exists")
		}
		return nil, apperr.Actionable("persist_failed", "status change was not saved and has been reverted", err)
	}

	s.publish(ctx, routingKey, mqcontracts.ItemStatusChangedPayload{
		ItemID:   next.ID,
		Category: string(next.Category),
		From:     prev.Status,
		To:       next.Status,
	})
	return &ItemResult{Item: next, Mutation: &mut}, nil
}

func (s *ItemService) Delete(ctx context.Context, id string) (*optimistic.Mutation, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	mut, err := s.ledger.Apply(ctx, s.mirror, "delete", id, nil, func(ctx context.Context) error {
		err := s.store.Delete(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			// 其他会话已经删除，结果一致
			return nil
		}
		return err
	})
	if err != nil {
		return nil, apperr.Actionable("persist_failed", "delete was not saved and has been reverted", err)
	}

	s.publish(ctx, mqcontracts.RoutingItemDeleted, mqcontracts.ItemDeletedPayload{ItemID: id})
	return &mut, nil
}

// Mutations 某条 item 最近的修改记录
func (s *ItemService) Mutations(id string) []optimistic.Mutation {
	return s.ledger.ForRecord(id)
}

// Board 线索看板
func (s *ItemService) Board(ctx context.Context) ([]pipeline.Column, error) {
	items, err := s.List(ctx, model.CategoryLead, false)
	if err != nil {
		return nil, err
	}
	return pipeline.BuildBoard(items), nil
}

// 事件发布失败不影响主流程
func (s *ItemService) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
