package model

import "time"

// Submission 的 Data 是 field id 到答案（string 或 bool）的映射
type Submission struct {
	ID        string         `json:"id"`
	FormID    string         `json:"form_id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// SubmissionWithForm 查询时 join 出来的表单信息；表单已删除时 FormTitle/FormFields 为空
type SubmissionWithForm struct {
	Submission
	FormTitle  *string `json:"form_title"`
	FormFields []Field `json:"form_fields"`
}

// HasForm join 是否命中了表单
func (s SubmissionWithForm) HasForm() bool {
	return s.FormTitle != nil
}
