package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniops/internal/model"
)

func strPtr(s string) *string { return &s }

func TestSubmission_MissingKeyRendersNoAnswer(t *testing.T) {
	sub := model.SubmissionWithForm{
		Submission: model.Submission{
			ID:     "5f1c2d3e-aaaa-bbbb-cccc-000000000000",
			FormID: "form-1",
			Data:   map[string]any{"name": "Ada", "agree": true, "stale-field": "ignored"},
		},
		FormTitle: strPtr("Contact"),
		FormFields: []model.Field{
			{ID: "name", Label: "Name", Type: model.FieldText},
			{ID: "notes", Label: "Notes", Type: model.FieldTextarea},
			{ID: "agree", Label: "Agree?", Type: model.FieldCheckbox},
			{ID: "optin", Label: "Newsletter", Type: model.FieldCheckbox},
		},
	}

	view := Submission(sub)

	assert.Equal(t, "Contact", view.FormTitle)
	assert.Empty(t, view.RawFallback)
	require.Len(t, view.Answers, 4)
	assert.Equal(t, "Ada", view.Answers[0].Value)
	assert.Equal(t, NoAnswer, view.Answers[1].Value)
	assert.False(t, view.Answers[1].Answered)
	assert.Equal(t, CheckedAnswer, view.Answers[2].Value)
	assert.Equal(t, NoAnswer, view.Answers[3].Value)
}

func TestSubmission_FormMissingUsesRawFallback(t *testing.T) {
	sub := model.SubmissionWithForm{
		Submission: model.Submission{ID: "s1", FormID: "gone", Data: map[string]any{"q1": "yes"}},
	}

	view := Submission(sub)

	assert.Nil(t, view.Answers)
	assert.Equal(t, `Form definition missing or changed. Raw Data: {"q1":"yes"}`, view.RawFallback)

	sub.Data = map[string]any{"q2": "<b>R&D</b>", "q1": true}
	view = Submission(sub)
	assert.Equal(t, `Form definition missing or changed. Raw Data: {"q1":true,"q2":"<b>R&D</b>"}`, view.RawFallback)
}

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		in       any
		want     string
		answered bool
	}{
		{nil, NoAnswer, false},
		{"", NoAnswer, false},
		{false, NoAnswer, false},
		{true, CheckedAnswer, true},
		{"hello", "hello", true},
		{float64(3), "3", true},
	}
	for _, tt := range tests {
		got, answered := formatAnswer(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.answered, answered)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(model.SubmissionWithForm{
		Submission: model.Submission{ID: "5f1c2d3e-aaaa", FormID: "f"},
	})
	assert.Equal(t, "5f1c2d3e...", s.ShortID)
	assert.Equal(t, "", s.FormTitle)
}

func TestForm(t *testing.T) {
	view := Form(&model.Form{
		ID:    "f1",
		Title: "Feedback",
		Fields: []model.Field{
			{ID: "a", Label: "Name", Type: model.FieldText},
			{ID: "b", Label: "Comments", Type: model.FieldTextarea},
			{ID: "c", Label: "Follow up", Type: model.FieldCheckbox},
		},
	})

	require.Len(t, view.Fields, 3)
	assert.Equal(t, "Short text answer...", view.Fields[0].Placeholder)
	assert.Equal(t, "textarea", view.Fields[1].Input)
	assert.Equal(t, "Long answer...", view.Fields[1].Placeholder)
	assert.Equal(t, "checkbox", view.Fields[2].Input)
	assert.Equal(t, "Select this option", view.Fields[2].Placeholder)
}
