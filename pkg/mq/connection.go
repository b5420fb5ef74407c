package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName 所有领域事件发布到这个 topic exchange
const ExchangeName = "omniops.events"

// Open 建立连接、打开 channel 并声明事件 exchange，任一步失败都会释放已打开的资源
func Open(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		closeAll(conn, ch)
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}
	return conn, ch, nil
}

func closeAll(conn *amqp091.Connection, ch *amqp091.Channel) {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}
