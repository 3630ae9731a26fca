package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "contacts.events"

	RoutingKeyVerifyEmail = "contacts.email.verify.requested"

	MailQueue   = "contacts.mailer"
	deadLetterX = "contacts.events.dlx"
	MailDLQ     = "contacts.mailer.dlq"
	rkDead      = "dead"
)

// declareTopology declares the exchanges and queues the publisher and the
// mail worker share. All declarations are idempotent.
func declareTopology(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if err := ch.ExchangeDeclare(deadLetterX, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlx declare: %w", err)
	}

	if _, err := ch.QueueDeclare(MailDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlq declare: %w", err)
	}
	if err := ch.QueueBind(MailDLQ, rkDead, deadLetterX, false, nil); err != nil {
		return fmt.Errorf("dlq bind: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    deadLetterX,
		"x-dead-letter-routing-key": rkDead,
	}
	if _, err := ch.QueueDeclare(MailQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(MailQueue, RoutingKeyVerifyEmail, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}
