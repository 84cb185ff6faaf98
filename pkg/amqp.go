package pkg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const amqpPrefetch = 16

// AMQPPublisher publishes events to a durable topic exchange, using the event
// topic as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, ch, err := dialAMQP(url, exchange)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Ping reports whether the connection and channel are still open.
func (p *AMQPPublisher) Ping(_ context.Context) error {
	if p.conn.IsClosed() || p.ch.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return closeAMQP(p.conn, p.ch)
}

// AMQPSubscriber binds one durable queue per topic to the exchange. Queues
// are named <queuePrefix>.<topic> so instances sharing a prefix compete for
// messages while different prefixes each get a copy.
type AMQPSubscriber struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	exchange    string
	queuePrefix string
	logger      apt.Logger
}

func NewAMQPSubscriber(url, exchange, queuePrefix string, logger apt.Logger) (*AMQPSubscriber, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	conn, ch, err := dialAMQP(url, exchange)
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(amqpPrefetch, 0, false); err != nil {
		_ = closeAMQP(conn, ch)
		return nil, fmt.Errorf("failed to set AMQP qos: %w", err)
	}

	return &AMQPSubscriber{
		conn:        conn,
		ch:          ch,
		exchange:    exchange,
		queuePrefix: queuePrefix,
		logger:      logger,
	}, nil
}

func (s *AMQPSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	name := queueName(s.queuePrefix, topic)

	q, err := s.ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	if err := s.ch.QueueBind(q.Name, topic, s.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", name, err)
	}

	deliveries, err := s.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %s: %w", name, err)
	}

	go func() {
		for d := range deliveries {
			if err := handler(ctx, d.Body); err != nil {
				s.logger.Error("event handler failed, message dropped", "topic", topic, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
		s.logger.Info("AMQP delivery channel closed", "queue", name)
	}()

	return nil
}

func (s *AMQPSubscriber) Close() error {
	return closeAMQP(s.conn, s.ch)
}

func dialAMQP(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = closeAMQP(conn, ch)
		return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return conn, ch, nil
}

func closeAMQP(conn *amqp.Connection, ch *amqp.Channel) error {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil && !conn.IsClosed() {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close AMQP connection: %w", err)
		}
	}
	return nil
}

func queueName(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return strings.TrimSuffix(prefix, ".") + "." + topic
}
