package render

import "omniops/internal/model"

var placeholders = map[model.FieldType]string{
	model.FieldText:     "Short text answer...",
	model.FieldTextarea: "Long answer...",
	model.FieldCheckbox: "Select this option",
}

type PublicField struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Type        model.FieldType `json:"type"`
	Input       string          `json:"input"`
	Placeholder string          `json:"placeholder"`
}

type PublicForm struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Fields []PublicField `json:"fields"`
}

// inputFor HTML 控件类型；未知字段类型按单行文本处理
func inputFor(t model.FieldType) string {
	switch t {
	case model.FieldTextarea:
		return "textarea"
	case model.FieldCheckbox:
		return "checkbox"
	}
	return "text"
}

func Form(form *model.Form) PublicForm {
	out := PublicForm{ID: form.ID, Title: form.Title, Fields: make([]PublicField, 0, len(form.Fields))}
	for _, f := range form.Fields {
		ph, ok := placeholders[f.Type]
		if !ok {
			ph = placeholders[model.FieldText]
		}
		out.Fields = append(out.Fields, PublicField{
			ID:          f.ID,
			Label:       f.Label,
			Type:        f.Type,
			Input:       inputFor(f.Type),
			Placeholder: ph,
		})
	}
	return out
}
