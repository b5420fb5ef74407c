package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mqcontracts "omniops/contracts/mq"
	"omniops/pkg/mq"
)

var ErrUnknownEvent = errors.New("unknown event")

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Describe 把一个事件转换成一条动态
func Describe(env mq.Envelope) (Entry, error) {
	e := Entry{
		ID:         env.ID,
		Kind:       env.RoutingKey,
		TraceID:    env.TraceID,
		OccurredAt: env.OccurredAt,
	}

	var err error
	switch env.RoutingKey {
	case mqcontracts.RoutingItemCreated:
		var p mqcontracts.ItemCreatedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RecordID = p.ItemID
			e.Summary = fmt.Sprintf("%s %q created", capitalize(p.Category), p.Title)
			if p.AIFilled {
				e.Summary += " with AI description"
			}
		}
	case mqcontracts.RoutingItemMoved, mqcontracts.RoutingItemToggled:
		var p mqcontracts.ItemStatusChangedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RecordID = p.ItemID
			if p.Category == "lead" {
				e.Summary = fmt.Sprintf("Lead moved from %s to %s", p.From, p.To)
			} else {
				e.Summary = fmt.Sprintf("Task marked %s", p.To)
			}
		}
	case mqcontracts.RoutingItemDeleted:
		var p mqcontracts.ItemDeletedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RecordID = p.ItemID
			e.Summary = "Item " + short(p.ItemID) + " deleted"
		}
	case mqcontracts.RoutingFormSaved:
		var p mqcontracts.FormSavedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RecordID = p.FormID
			e.Summary = fmt.Sprintf("Form %q saved with %d fields", p.Title, p.FieldCount)
		}
	case mqcontracts.RoutingSubmissionReceived:
		var p mqcontracts.SubmissionReceivedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RecordID = p.SubmissionID
			e.Summary = "New submission for form " + short(p.FormID)
		}
	default:
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownEvent, env.RoutingKey)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", env.RoutingKey, err)
	}
	return e, nil
}
