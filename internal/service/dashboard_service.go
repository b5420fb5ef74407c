package service

import (
	"context"

	"omniops/internal/model"
	"omniops/internal/pipeline"
	"omniops/pkg/apperr"

	"go.uber.org/zap"
)

// Counter 表单和提交的计数
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type DashboardSummary struct {
	Tasks       map[string]int `json:"tasks"`
	Leads       map[string]int `json:"leads"`
	Forms       int            `json:"forms"`
	Submissions int            `json:"submissions"`
}

type DashboardService struct {
	items       *ItemService
	forms       Counter
	submissions Counter
	logger      *zap.Logger
}

func NewDashboardService(items *ItemService, forms, submissions Counter, logger *zap.Logger) *DashboardService {
	return &DashboardService{items: items, forms: forms, submissions: submissions, logger: logger}
}

func (s *DashboardService) Summary(ctx context.Context) (*DashboardSummary, error) {
	items, err := s.items.List(ctx, "", false)
	if err != nil {
		return nil, err
	}

	sum := &DashboardSummary{
		Tasks: map[string]int{model.StatusTodo: 0, model.StatusDone: 0},
		Leads: make(map[string]int, len(pipeline.Stages)),
	}
	for _, st := range pipeline.Stages {
		sum.Leads[string(st)] = 0
	}
	for _, it := range items {
		switch it.Category {
		case model.CategoryTask:
			sum.Tasks[it.Status]++
		case model.CategoryLead:
			sum.Leads[it.Status]++
		}
	}

	if sum.Forms, err = s.forms.Count(ctx); err != nil {
		s.logger.Error("Failed to count forms", zap.Error(err))
		return nil, apperr.Actionable("count_failed", "could not count forms", err)
	}
	if sum.Submissions, err = s.submissions.Count(ctx); err != nil {
		s.logger.Error("Failed to count submissions", zap.Error(err))
		return nil, apperr.Actionable("count_failed", "could not count submissions", err)
	}
	return sum, nil
}
