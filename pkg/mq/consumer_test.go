package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedAck struct {
	acks, nacks int
	requeued    bool
}

func (r *recordedAck) Ack(uint64, bool) error { r.acks++; return nil }
func (r *recordedAck) Nack(_ uint64, _ bool, requeue bool) error {
	r.nacks++
	r.requeued = requeue
	return nil
}
func (r *recordedAck) Reject(uint64, bool) error { return nil }

type memRetries struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memRetries) IncrementAndGet(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRetries) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	return nil
}

type downRetries struct{}

func (downRetries) IncrementAndGet(context.Context, string) (int64, error) {
	return 0, errors.New("dial tcp: connection refused")
}
func (downRetries) Reset(context.Context, string) error { return nil }

func testConsumer(h EnvelopeHandler) (*Consumer, *[]string) {
	var dead []string
	c := newConsumer("omniops.test.q", "#", zap.NewNop())
	c.SetHandler(h)
	c.deadLetter = func(_ context.Context, _ amqp091.Delivery, reason string) error {
		dead = append(dead, reason)
		return nil
	}
	return c, &dead
}

func delivery(t *testing.T, ack amqp091.Acknowledger, env Envelope) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return amqp091.Delivery{Acknowledger: ack, MessageId: env.ID, RoutingKey: env.RoutingKey, Body: body}
}

func TestProcess_AcksOnSuccess(t *testing.T) {
	var got Envelope
	c, dead := testConsumer(func(_ context.Context, env Envelope) error {
		got = env
		return nil
	})
	ack := &recordedAck{}

	c.process(context.Background(), delivery(t, ack, Envelope{ID: "e1", RoutingKey: "item.created", TraceID: "t1"}))

	assert.Equal(t, 1, ack.acks)
	assert.Equal(t, "e1", got.ID)
	assert.Empty(t, *dead)
}

func TestProcess_RetriesThenDeadLetters(t *testing.T) {
	c, dead := testConsumer(func(context.Context, Envelope) error { return errors.New("redis down") })
	c.SetRetryTracker(&memRetries{counts: map[string]int64{}}, 3)
	env := Envelope{ID: "e2", RoutingKey: "form.saved"}

	for i := 0; i < 2; i++ {
		ack := &recordedAck{}
		c.process(context.Background(), delivery(t, ack, env))
		assert.Equal(t, 1, ack.nacks)
		assert.True(t, ack.requeued)
	}

	ack := &recordedAck{}
	c.process(context.Background(), delivery(t, ack, env))
	assert.Equal(t, 1, ack.acks)
	require.Len(t, *dead, 1)
	assert.Contains(t, (*dead)[0], "gave up after 3 attempts")
}

func TestProcess_DeadLettersWhenRetryCounterIsDown(t *testing.T) {
	c, dead := testConsumer(func(context.Context, Envelope) error { return errors.New("redis down") })
	c.SetRetryTracker(downRetries{}, 3)

	ack := &recordedAck{}
	c.process(context.Background(), delivery(t, ack, Envelope{ID: "e5", RoutingKey: "item.moved"}))
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	require.Len(t, *dead, 1)
	assert.Contains(t, (*dead)[0], "retry counter unavailable")
}

func TestProcess_PermanentErrorAndGarbageGoStraightToDLQ(t *testing.T) {
	c, dead := testConsumer(func(context.Context, Envelope) error {
		return fmt.Errorf("bad payload: %w", ErrPermanent)
	})

	ack := &recordedAck{}
	c.process(context.Background(), delivery(t, ack, Envelope{ID: "e3", RoutingKey: "item.deleted"}))
	assert.Equal(t, 1, ack.acks)

	ack = &recordedAck{}
	c.process(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: []byte("not json")})
	assert.Equal(t, 1, ack.acks)
	assert.Len(t, *dead, 2)
}

func TestProcess_PanicIsRequeued(t *testing.T) {
	c, _ := testConsumer(func(context.Context, Envelope) error { panic("boom") })
	ack := &recordedAck{}

	c.process(context.Background(), delivery(t, ack, Envelope{ID: "e4", RoutingKey: "item.created"}))
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
}

func TestRetryKey_FallsBackToBodyHash(t *testing.T) {
	a := retryKey(amqp091.Delivery{Body: []byte("x")})
	b := retryKey(amqp091.Delivery{Body: []byte("x")})
	assert.Equal(t, a, b)
	assert.Equal(t, "id-1", retryKey(amqp091.Delivery{MessageId: "id-1"}))
}
