package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"factory-tracker/internal/events"
	"factory-tracker/pkg/retrier"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp.Channel the mirror publishes through
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPMirror copies every tracker event to a fanout exchange so other
// services can follow the fleet without a websocket
type AMQPMirror struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	log      *zap.Logger
}

// Dial connects to the broker (retrying with backoff) and declares the exchange
func Dial(ctx context.Context, url, exchange string, retry *retrier.Retrier, log *zap.Logger) (*AMQPMirror, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var conn *amqp.Connection
	err := retry.ExecuteWithContext(ctx, func(context.Context) error {
		c, err := amqp.Dial(url)
		if err != nil {
			log.Warn("⏳ rabbitmq not reachable yet", zap.Error(err))
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	m := NewAMQPMirror(ch, exchange, log)
	m.conn = conn
	return m, nil
}

// NewAMQPMirror wraps an open channel
func NewAMQPMirror(ch Channel, exchange string, log *zap.Logger) *AMQPMirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPMirror{channel: ch, exchange: exchange, log: log}
}

func (m *AMQPMirror) Name() string { return "amqp-mirror" }

// Deliver implements events.Subscriber. The event type is the routing key so
// consumers binding a topic exchange downstream can filter on it.
func (m *AMQPMirror) Deliver(ctx context.Context, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return m.channel.PublishWithContext(
		ctx,
		m.exchange,
		string(e.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    e.Timestamp,
			Type:         string(e.Type),
			Body:         body,
		})
}

func (m *AMQPMirror) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
