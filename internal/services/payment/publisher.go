package payment

import (
	"github.com/streadway/amqp"

	"github.com/nimbuscloud/console-payments/internal/lib/rabbitmq"
)

// AMQPPublisher публикует квитанции в RabbitMQ.
type AMQPPublisher struct {
	ch *amqp.Channel
}

// NewAMQPPublisher создает издателя поверх открытого канала.
func NewAMQPPublisher(ch *amqp.Channel) *AMQPPublisher {
	return &AMQPPublisher{ch: ch}
}

// PublishReceipt отправляет квитанцию в обменник платежей.
func (p *AMQPPublisher) PublishReceipt(receipt Receipt) error {
	return rabbitmq.PublishMessage(p.ch, rabbitmq.Exchange, rabbitmq.RoutingKeyReceipt, receipt)
}
