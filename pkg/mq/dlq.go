package mq

import (
	"context"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "omniops.events.dlq"
)

// DeclareDLQ 声明死信 exchange 和 <queue>.dlq 队列
func DeclareDLQ(ch *amqp091.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(queueName+".dlq", true, false, false, false, nil)
	if err != nil {
		return err
	}
	return ch.QueueBind(q.Name, queueName, DLQExchangeName, false, nil)
}

// publishToDLQ 以队列名作为 routing key 转发到死信 exchange，原始 routing key 放进 header
func (c *Consumer) publishToDLQ(ctx context.Context, msg amqp091.Delivery, reason string) error {
	headers := amqp091.Table{
		"x-original-error":       reason,
		"x-original-routing-key": msg.RoutingKey,
		"x-failed-at":            c.name,
		"x-failed-time":          time.Now().UTC().Format(time.RFC3339),
	}

	return c.channel.PublishWithContext(
		ctx,
		DLQExchangeName,
		c.name,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    msg.MessageId,
			Body:         msg.Body,
			DeliveryMode: amqp091.Persistent,
			Headers:      headers,
		},
	)
}
