package pipeline

import (
	"omniops/internal/model"
)

const previewLen = 100

// Card 看板上的一张线索卡片
type Card struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview,omitempty"`
	CanPrev bool   `json:"can_prev"`
	CanNext bool   `json:"can_next"`
}

type Column struct {
	Stage Stage  `json:"stage"`
	Count int    `json:"count"`
	Cards []Card `json:"cards"`
}

// BuildBoard 把线索按阶段分列；非线索和未知阶段的记录不会出现在看板上
func BuildBoard(items []model.Item) []Column {
	columns := make([]Column, len(Stages))
	for i, st := range Stages {
		columns[i] = Column{Stage: st, Cards: []Card{}}
	}

	for _, it := range items {
		if it.Category != model.CategoryLead {
			continue
		}
		idx := Index(Stage(it.Status))
		if idx < 0 {
			continue
		}
		columns[idx].Cards = append(columns[idx].Cards, Card{
			ID:      it.ID,
			Title:   it.Title,
			Preview: Preview(it.Description),
			CanPrev: idx > 0,
			CanNext: idx < len(Stages)-1,
		})
		columns[idx].Count++
	}
	return columns
}

// Preview 截断描述，按 rune 计数
func Preview(desc string) string {
	if desc == "" {
		return ""
	}
	r := []rune(desc)
	if len(r) <= previewLen {
		return desc
	}
	return string(r[:previewLen]) + "..."
}
