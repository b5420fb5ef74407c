// Package formbuilder 表单编辑器：有序字段列表，保存时才落库。
package formbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"omniops/internal/model"
)

const PlaceholderLabel = "New Field"

var (
	ErrEmptyTitle       = errors.New("form title is required")
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrFieldNotFound    = errors.New("field not found")
)

// FormStore 表单持久化
type FormStore interface {
	Insert(ctx context.Context, title string, fields []model.Field) (*model.Form, error)
}

// Builder 不是并发安全的；服务端草稿由 service.FormService 串行读写
type Builder struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Fields []model.Field `json:"fields"`

	newID func() string
}

func New() *Builder {
	return &Builder{ID: uuid.NewString(), Fields: []model.Field{}}
}

func (b *Builder) nextID() string {
	if b.newID != nil {
		return b.newID()
	}
	return uuid.NewString()
}

// AddField 追加一个占位标签的字段
func (b *Builder) AddField(t model.FieldType) (model.Field, error) {
	if !t.Valid() {
		return model.Field{}, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
	}
	f := model.Field{ID: b.nextID(), Label: PlaceholderLabel, Type: t}
	b.Fields = append(b.Fields, f)
	return f, nil
}

func (b *Builder) UpdateLabel(id, label string) error {
	for i := range b.Fields {
		if b.Fields[i].ID == id {
			b.Fields[i].Label = label
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}

func (b *Builder) RemoveField(id string) error {
	for i := range b.Fields {
		if b.Fields[i].ID == id {
			b.Fields = append(b.Fields[:i], b.Fields[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFieldNotFound, id)
}

// Snapshot 字段列表的副本
func (b *Builder) Snapshot() []model.Field {
	out := make([]model.Field, len(b.Fields))
	copy(out, b.Fields)
	return out
}

// Save 标题为空时不调用 store
func (b *Builder) Save(ctx context.Context, store FormStore, title string) (*model.Form, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	form, err := store.Insert(ctx, title, b.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("save form: %w", err)
	}
	b.Title = title
	return form, nil
}
