package rabbitmq

// Exchange имя exchange для событий платежей.
const Exchange = "payments"

// RoutingKeyReceipt ключ маршрутизации квитанций об успешных платежах.
const RoutingKeyReceipt = "receipt"

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetPaymentQueues возвращает очереди событий платежей.
func GetPaymentQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "payment.receipt", RoutingKey: RoutingKeyReceipt},
	}
}
