// Package render 把存储模型转换成前端直接展示的视图。
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"omniops/internal/model"
)

const (
	NoAnswer       = "No answer"
	CheckedAnswer  = "✓"
	missingFormFmt = "Form definition missing or changed. Raw Data: %s"
)

type Answer struct {
	FieldID  string          `json:"field_id"`
	Label    string          `json:"label"`
	Type     model.FieldType `json:"type"`
	Value    string          `json:"value"`
	Answered bool            `json:"answered"`
}

type SubmissionView struct {
	ID          string    `json:"id"`
	FormID      string    `json:"form_id"`
	FormTitle   string    `json:"form_title"`
	SubmittedAt time.Time `json:"submitted_at"`
	Answers     []Answer  `json:"answers,omitempty"`
	// 表单缺失时只给原始数据
	RawFallback string `json:"raw_fallback,omitempty"`
}

// SubmissionSummary 收件箱列表项
type SubmissionSummary struct {
	ID          string    `json:"id"`
	ShortID     string    `json:"short_id"`
	FormID      string    `json:"form_id"`
	FormTitle   string    `json:"form_title"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func Summarize(sub model.SubmissionWithForm) SubmissionSummary {
	title := ""
	if sub.FormTitle != nil {
		title = *sub.FormTitle
	}
	short := sub.ID
	if len(short) > 8 {
		short = short[:8] + "..."
	}
	return SubmissionSummary{
		ID:          sub.ID,
		ShortID:     short,
		FormID:      sub.FormID,
		FormTitle:   title,
		SubmittedAt: sub.CreatedAt,
	}
}

// Submission 按表单字段顺序渲染答案；数据里多出来的 key 忽略，缺失的显示 No answer
func Submission(sub model.SubmissionWithForm) SubmissionView {
	view := SubmissionView{
		ID:          sub.ID,
		FormID:      sub.FormID,
		SubmittedAt: sub.CreatedAt,
	}

	if !sub.HasForm() {
		view.RawFallback = fmt.Sprintf(missingFormFmt, rawJSON(sub.Data))
		return view
	}

	view.FormTitle = *sub.FormTitle
	view.Answers = make([]Answer, 0, len(sub.FormFields))
	for _, f := range sub.FormFields {
		value, answered := formatAnswer(sub.Data[f.ID])
		view.Answers = append(view.Answers, Answer{
			FieldID:  f.ID,
			Label:    f.Label,
			Type:     f.Type,
			Value:    value,
			Answered: answered,
		})
	}
	return view
}

// rawJSON 不转义 HTML 字符；jsonb 不保留键顺序，输出按键排序
func rawJSON(data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "{}"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func formatAnswer(v any) (string, bool) {
	switch a := v.(type) {
	case nil:
		return NoAnswer, false
	case bool:
		if a {
			return CheckedAnswer, true
		}
		return NoAnswer, false
	case string:
		if a == "" {
			return NoAnswer, false
		}
		return a, true
	default:
		// 非预期类型原样序列化
		raw, err := json.Marshal(a)
		if err != nil {
			return NoAnswer, false
		}
		return string(raw), true
	}
}
