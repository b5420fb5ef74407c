package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "omniops/contracts/mq"
	"omniops/pkg/mq"
)

func envelope(t *testing.T, key string, payload any) mq.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return mq.Envelope{ID: "ev-" + key, RoutingKey: key, OccurredAt: time.Unix(1700000000, 0), Data: data}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		key     string
		payload any
		want    string
	}{
		{mqcontracts.RoutingItemCreated, mqcontracts.ItemCreatedPayload{ItemID: "i1", Title: "Acme", Category: "lead", AIFilled: true}, `Lead "Acme" created with AI description`},
		{mqcontracts.RoutingItemCreated, mqcontracts.ItemCreatedPayload{ItemID: "i2", Title: "Ship", Category: "task"}, `Task "Ship" created`},
		{mqcontracts.RoutingItemMoved, mqcontracts.ItemStatusChangedPayload{ItemID: "i1", Category: "lead", From: "new", To: "negotiation"}, "Lead moved from new to negotiation"},
		{mqcontracts.RoutingItemToggled, mqcontracts.ItemStatusChangedPayload{ItemID: "i2", Category: "task", From: "todo", To: "done"}, "Task marked done"},
		{mqcontracts.RoutingItemDeleted, mqcontracts.ItemDeletedPayload{ItemID: "0123456789abcdef"}, "Item 01234567 deleted"},
		{mqcontracts.RoutingFormSaved, mqcontracts.FormSavedPayload{FormID: "f1", Title: "Contact", FieldCount: 3}, `Form "Contact" saved with 3 fields`},
		{mqcontracts.RoutingSubmissionReceived, mqcontracts.SubmissionReceivedPayload{SubmissionID: "s1", FormID: "f1"}, "New submission for form f1"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e, err := Describe(envelope(t, tt.key, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Summary)
			assert.Equal(t, tt.key, e.Kind)
			assert.NotEmpty(t, e.RecordID)
		})
	}
}

func TestDescribe_Errors(t *testing.T) {
	_, err := Describe(mq.Envelope{RoutingKey: "user.created"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Describe(mq.Envelope{RoutingKey: mqcontracts.RoutingFormSaved, Data: []byte(`"nope"`)})
	assert.Error(t, err)
}

type memStore struct {
	entries []Entry
	err     error
}

func (m *memStore) Push(_ context.Context, e Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type memDedup struct{ seen map[string]bool }

func (d *memDedup) AcquireOnce(_ context.Context, scope, key string) bool {
	if d.seen[scope+key] {
		return false
	}
	d.seen[scope+key] = true
	return true
}

func (d *memDedup) Release(_ context.Context, scope, key string) { delete(d.seen, scope+key) }

func TestRecorder_Handle(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, &memDedup{seen: map[string]bool{}}, zap.NewNop())
	ctx := context.Background()
	env := envelope(t, mqcontracts.RoutingFormSaved, mqcontracts.FormSavedPayload{FormID: "f1", Title: "A"})

	require.NoError(t, r.Handle(ctx, env))
	require.NoError(t, r.Handle(ctx, env), "redelivery is ignored")
	assert.Len(t, store.entries, 1)

	err := r.Handle(ctx, mq.Envelope{ID: "x", RoutingKey: "user.created"})
	assert.ErrorIs(t, err, mq.ErrPermanent)
}

func TestRecorder_StoreFailureIsRetryable(t *testing.T) {
	store := &memStore{err: errors.New("redis down")}
	r := NewRecorder(store, &memDedup{seen: map[string]bool{}}, zap.NewNop())
	env := envelope(t, mqcontracts.RoutingItemDeleted, mqcontracts.ItemDeletedPayload{ItemID: "i1"})

	err := r.Handle(context.Background(), env)
	require.Error(t, err)
	assert.NotErrorIs(t, err, mq.ErrPermanent)

	store.err = nil
	require.NoError(t, r.Handle(context.Background(), env), "dedup key released after failure")
	assert.Len(t, store.entries, 1)
}
