package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"omniops/pkg/metrics"
	"omniops/pkg/trace"
)

// ErrPermanent 包装后的错误不重试，直接进死信队列
var ErrPermanent = errors.New("permanent failure")

// EnvelopeHandler 处理一条已经解出 Envelope 的事件
type EnvelopeHandler func(ctx context.Context, env Envelope) error

// RetryTracker 记录每条消息的失败次数
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

const defaultMaxRetries = 3

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	name       string
	handler    EnvelopeHandler
	retries    RetryTracker
	maxRetries int64
	conn       *amqp091.Connection
	logger     *zap.Logger

	// 测试时替换
	deadLetter func(ctx context.Context, msg amqp091.Delivery, reason string) error
}

// NewConsumer 声明持久队列并绑定到 omniops.events；routingKey 支持 topic 通配符
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := Open(url)
	if err != nil {
		return nil, err
	}

	fail := func(format string, err error) (*Consumer, error) {
		closeAll(conn, ch)
		return nil, fmt.Errorf(format, err)
	}

	if err := DeclareDLQ(ch, queueName); err != nil {
		return fail("failed to declare DLQ: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fail("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return fail("failed to bind queue: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		return fail("failed to set QoS: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	c := newConsumer(queueName, routingKey, logger)
	c.conn = conn
	c.channel = ch
	c.queue = q
	c.deadLetter = c.publishToDLQ
	return c, nil
}

func newConsumer(name, routingKey string, logger *zap.Logger) *Consumer {
	return &Consumer{
		name:       name,
		routingKey: routingKey,
		maxRetries: defaultMaxRetries,
		logger:     logger,
	}
}

func (c *Consumer) SetHandler(h EnvelopeHandler) {
	c.handler = h
}

// SetRetryTracker 不设置时失败的消息每次都重新入队
func (c *Consumer) SetRetryTracker(r RetryTracker, maxRetries int) {
	c.retries = r
	if maxRetries > 0 {
		c.maxRetries = int64(maxRetries)
	}
}

func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	closeAll(c.conn, c.channel)
}

// StartConsuming 阻塞直到 ctx 取消或 channel 关闭，应在 goroutine 中调用
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(c.queue.Name, c.name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.process(ctx, msg)
		}
	}
}

func retryKey(msg amqp091.Delivery) string {
	if msg.MessageId != "" {
		return msg.MessageId
	}
	h := fnv.New64a()
	_, _ = h.Write(msg.Body)
	return strconv.FormatUint(h.Sum64(), 16)
}

// process 保证每条消息都会被 ack、nack 或转入死信队列
func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	log := c.logger.With(zap.String("queue", c.name), zap.String("routing_key", msg.RoutingKey))

	var env Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		log.Error("Undecodable message", zap.Error(err))
		c.toDLQ(ctx, msg, "decode: "+err.Error())
		return
	}
	ctx = trace.WithContext(ctx, env.TraceID)

	err := c.safeHandle(ctx, env)
	if err == nil {
		if c.retries != nil {
			_ = c.retries.Reset(ctx, retryKey(msg))
		}
		metrics.IncrementEventConsumed(msg.RoutingKey, "ok")
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
		}
		return
	}

	log.Error("Handler error", zap.String("event_id", env.ID), zap.Error(err))
	if errors.Is(err, ErrPermanent) {
		c.toDLQ(ctx, msg, err.Error())
		return
	}

	if c.retries != nil {
		n, rerr := c.retries.IncrementAndGet(ctx, retryKey(msg))
		if rerr != nil {
			// 计数不可用时无法限制重试次数，直接转入死信队列
			log.Warn("Retry counter unavailable", zap.String("event_id", env.ID), zap.Error(rerr))
			c.toDLQ(ctx, msg, fmt.Sprintf("retry counter unavailable (%v): %v", rerr, err))
			return
		}
		if n >= c.maxRetries {
			c.toDLQ(ctx, msg, fmt.Sprintf("gave up after %d attempts: %v", n, err))
			return
		}
	}

	// 业务失败 → 拒绝消息并重新入队，让 MQ 重试
	metrics.IncrementEventConsumed(msg.RoutingKey, "retry")
	if err := msg.Nack(false, true); err != nil {
		log.Error("Failed to nack message", zap.Error(err))
	}
}

func (c *Consumer) safeHandle(ctx context.Context, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, env)
}

func (c *Consumer) toDLQ(ctx context.Context, msg amqp091.Delivery, reason string) {
	log := c.logger.With(zap.String("queue", c.name), zap.String("routing_key", msg.RoutingKey))

	if err := c.deadLetter(ctx, msg, reason); err != nil {
		log.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	if c.retries != nil {
		_ = c.retries.Reset(ctx, retryKey(msg))
	}
	metrics.IncrementEventConsumed(msg.RoutingKey, "dead_lettered")
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
}
