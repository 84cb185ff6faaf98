package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	replayPage     = 500
	replayPageWait = 2 * time.Second
)

// NATSStream implements events.Stream using NATS JetStream for persistent event streaming.
// Every consumer it opens is an ephemeral ordered consumer, so each instance
// sees every event and resumes without gaps after a reconnect.
type NATSStream struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	consume jetstream.ConsumeContext
	topic   string
	logger  apt.Logger
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	URL        string        // NATS server URL
	StreamName string        // JetStream stream name (e.g., "ORDER_EVENTS")
	Topic      string        // Subject the stream captures (e.g., "orders.events")
	ClientName string        // Connection name shown by the server
	MaxAge     time.Duration // Retention window, one service day is typical
	MaxMsgs    int64         // Maximum number of messages to retain (0 = unlimited)
	Logger     apt.Logger
}

// NewNATSStream creates a new NATSStream and ensures the stream exists.
func NewNATSStream(cfg NATSStreamConfig) (*NATSStream, error) {
	if cfg.Logger == nil {
		cfg.Logger = apt.NewNoopLogger()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name(cfg.ClientName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(context.Background(), streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStream{
		conn:   conn,
		js:     js,
		stream: stream,
		topic:  cfg.Topic,
		logger: cfg.Logger,
	}, nil
}

// Publish publishes a message to the stream.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	_, err := s.js.Publish(ctx, topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Fetch replays the newest limit retained messages, oldest first. When the
// stream holds more than limit messages the older head is skipped.
func (s *NATSStream) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if limit <= 0 {
		limit = 1000
	}

	info, err := s.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream info: %w", err)
	}

	start, want := replayWindow(info.State.FirstSeq, info.State.LastSeq, info.State.Msgs, limit)
	if want == 0 {
		return nil, nil
	}

	replay, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.topic},
		DeliverPolicy:  jetstream.DeliverByStartSequencePolicy,
		OptStartSeq:    start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create replay consumer: %w", err)
	}

	messages := make([]events.StreamMessage, 0, want)
	for len(messages) < want {
		msgBatch, err := replay.Fetch(min(replayPage, want-len(messages)), jetstream.FetchMaxWait(replayPageWait))
		if err != nil {
			return messages, fmt.Errorf("failed to fetch messages: %w", err)
		}

		var received int
		for msg := range msgBatch.Messages() {
			received++
			metadata, err := msg.Metadata()
			if err != nil {
				s.logger.Debug("skipping stream message without metadata", "error", err)
				continue
			}

			messages = append(messages, events.StreamMessage{
				Data:      msg.Data(),
				Sequence:  metadata.Sequence.Stream,
				Timestamp: metadata.Timestamp.UnixNano(),
			})
		}

		if err := msgBatch.Error(); err != nil {
			return messages, fmt.Errorf("failed to read batch: %w", err)
		}
		if received == 0 {
			break
		}
	}

	return messages, nil
}

// replayWindow picks the first sequence and message count of a tail replay
// of at most limit messages.
func replayWindow(first, last, msgs uint64, limit int) (start uint64, want int) {
	if msgs == 0 || limit <= 0 {
		return 0, 0
	}
	if msgs <= uint64(limit) {
		return first, int(msgs)
	}
	start = last - uint64(limit) + 1
	if start < first {
		start = first
	}
	return start, limit
}

// SubscribeStream delivers messages published from now on. Handler errors are
// logged; ordered consumers do not redeliver.
func (s *NATSStream) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	live, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.topic},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create live consumer: %w", err)
	}

	cc, err := live.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Error("stream handler failed", "topic", s.topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to consume stream: %w", err)
	}
	s.consume = cc
	return nil
}

// Subscribe implements events.Subscriber for the subject the stream captures.
func (s *NATSStream) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if topic != s.topic {
		return fmt.Errorf("stream captures %s, cannot subscribe to %s", s.topic, topic)
	}
	return s.SubscribeStream(ctx, handler)
}

// Ping reports whether the underlying connection is usable.
func (s *NATSStream) Ping(_ context.Context) error {
	if !s.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", s.conn.Status())
	}
	return nil
}

// Close stops consumption and closes the NATS connection.
func (s *NATSStream) Close() error {
	if s.consume != nil {
		s.consume.Stop()
	}
	s.conn.Close()
	return nil
}
