package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"omniops/pkg/trace"
)

// EventPublisher 领域事件发布接口；业务代码只依赖这个接口
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Envelope 所有事件共用的外层结构
type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	TraceID    string          `json:"trace_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope 把 payload 序列化进 Envelope
func NewEnvelope(ctx context.Context, routingKey string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		RoutingKey: routingKey,
		TraceID:    trace.FromContext(ctx),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

type Publisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	mu      sync.Mutex // amqp channel 不是并发安全的
}

func NewPublisher(url string) (*Publisher, error) {
	conn, ch, err := Open(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	closeAll(p.conn, p.channel)
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// Publish publishes an event envelope to the exchange with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	env, err := NewEnvelope(ctx, routingKey, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    env.ID,
			Timestamp:    env.OccurredAt,
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}

// NopPublisher 未配置 MQ 时使用，丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
