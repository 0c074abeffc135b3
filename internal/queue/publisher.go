package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/logger"
)

// Publisher sends domain events to RabbitMQ.  Each publish dials its
// own short-lived connection: event volume is low, and a fresh dial
// per message means a broker restart never leaves the process holding
// a dead channel.  Errors are logged and returned so callers can
// ignore failures without interrupting the main request flow.
type Publisher struct {
	url string
}

// NewPublisher creates a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Publish marshals payload into the standard envelope and sends it to
// the named queue.  The queue is declared durable on every publish
// (idempotent) and messages are marked persistent.
func (p *Publisher) Publish(ctx context.Context, queue, eventType string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Error("rabbitmq dial failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("rabbitmq channel open failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		logger.Error("rabbitmq queue declare failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	body, err := json.Marshal(Envelope{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		logger.Error("rabbitmq publish failed", zap.String("queue", queue), zap.Error(err))
		return fmt.Errorf("publish %s: %w", queue, err)
	}

	return nil
}
