// Package service holds the business flows behind the HTTP handlers:
// checkout, receipt delivery and contact messages.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/queue"
)

// EventPublisher announces confirmed reservations to other systems.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// Publisher publishes to a durable RabbitMQ queue.  It dials per message;
// checkout volume is a few messages a minute at most.
type Publisher struct {
	url    string
	queue  string
	logger *zap.Logger
}

func NewPublisher(url, queueName string, logger *zap.Logger) *Publisher {
	return &Publisher{url: url, queue: queueName, logger: logger.Named("publisher")}
}

// PublishReservationConfirmed sends ev as a persistent JSON message routed
// to the queue through the default exchange.  Errors are logged and
// returned; callers decide whether they matter.
func (p *Publisher) PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn("dial failed", zap.Error(err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("channel open failed", zap.Error(err))
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.logger.Warn("queue declare failed", zap.String("queue", p.queue), zap.Error(err))
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.ReceiptNumber,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Warn("publish failed", zap.String("receipt", ev.ReceiptNumber), zap.Error(err))
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}
