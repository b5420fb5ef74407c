package mq

// Routing keys，发布到 omniops.events topic exchange
const (
	RoutingItemCreated        = "item.created"
	RoutingItemMoved          = "item.moved"
	RoutingItemToggled        = "item.toggled"
	RoutingItemDeleted        = "item.deleted"
	RoutingFormSaved          = "form.saved"
	RoutingSubmissionReceived = "submission.received"
)

type ItemCreatedPayload struct {
	ItemID   string `json:"item_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
	AIFilled bool   `json:"ai_filled"`
}

// ItemStatusChangedPayload item.moved 和 item.toggled 共用
type ItemStatusChangedPayload struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type ItemDeletedPayload struct {
	ItemID string `json:"item_id"`
}

type FormSavedPayload struct {
	FormID     string `json:"form_id"`
	Title      string `json:"title"`
	FieldCount int    `json:"field_count"`
}

type SubmissionReceivedPayload struct {
	SubmissionID string `json:"submission_id"`
	FormID       string `json:"form_id"`
	AnswerCount  int    `json:"answer_count"`
}
