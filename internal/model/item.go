package model

import "time"

type Category string

const (
	CategoryTask Category = "task"
	CategoryLead Category = "lead"
)

// Valid 是否是已知分类
func (c Category) Valid() bool {
	return c == CategoryTask || c == CategoryLead
}

// 任务状态；线索状态见 pipeline.Stage
const (
	StatusTodo = "todo"
	StatusDone = "done"
)

type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}
