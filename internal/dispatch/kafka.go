package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fairyhunter13/product-catalog-service/internal/model"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer used by KafkaDispatcher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the subset of kafka.Reader used by KafkaConsumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes audit events to a topic. Messages are keyed by
// product code so events of one product stay on one partition.
type KafkaDispatcher struct {
	writer Writer
}

var _ Dispatcher = (*KafkaDispatcher)(nil)

// NewKafkaDispatcher creates an asynchronous producer for topic. WriteMessages
// returns once the batch is buffered; broker errors surface in the completion
// callback and are logged.
func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				obs.Logger.Error("kafka_publish_failed", "topic", topic, "messages", len(msgs), "error", err)
			}
		},
	}
	return &KafkaDispatcher{writer: w}
}

// NewKafkaDispatcherWithWriter allows injecting a test writer.
func NewKafkaDispatcherWithWriter(w Writer) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, ev model.AuditEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	msg := kafka.Message{Key: []byte(ev.ProductCode), Value: b}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (d *KafkaDispatcher) Close() error { return d.writer.Close() }

// KafkaConsumer reads audit events from a topic and hands them to the
// recorder. Offsets are committed only after the recorder succeeded or the
// message was given up on.
type KafkaConsumer struct {
	reader      Reader
	c           Consumer
	maxAttempts int
	backoff     time.Duration
}

// NewKafkaConsumer joins groupID on topic.
func NewKafkaConsumer(brokers []string, topic, groupID string, c Consumer, maxAttempts int, backoff time.Duration) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewKafkaConsumerWithReader(r, c, maxAttempts, backoff)
}

// NewKafkaConsumerWithReader allows injecting a test reader.
func NewKafkaConsumerWithReader(r Reader, c Consumer, maxAttempts int, backoff time.Duration) *KafkaConsumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &KafkaConsumer{reader: r, c: c, maxAttempts: maxAttempts, backoff: backoff}
}

// Run consumes until ctx is canceled.
func (k *KafkaConsumer) Run(ctx context.Context) error {
	obs.Logger.Info("kafka_consumer_started")
	for {
		m, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			obs.Logger.Warn("kafka_fetch_error", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}
		if !k.handle(ctx, m) {
			return nil
		}
		if err := k.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			obs.Logger.Error("kafka_commit_failed", "offset", m.Offset, "error", err)
		}
	}
}

// handle delivers one message, retrying in place. It returns false only when
// ctx ended before the message was settled.
func (k *KafkaConsumer) handle(ctx context.Context, m kafka.Message) bool {
	var ev model.AuditEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		obs.EventsDropped.Inc()
		obs.Logger.Error("kafka_message_undecodable", "offset", m.Offset, "error", err)
		return true
	}
	for attempt := 1; ; attempt++ {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := k.c.Record(rctx, ev)
		cancel()
		if err == nil {
			return true
		}
		if attempt >= k.maxAttempts || errors.Is(err, ErrUndeliverable) {
			obs.EventsDropped.Inc()
			obs.Logger.Error("event_delivery_abandoned",
				"event_type", ev.EventType,
				"product_code", ev.ProductCode,
				"offset", m.Offset,
				"attempts", attempt,
				"error", err,
			)
			return true
		}
		obs.EventRetries.Inc()
		if !sleepCtx(ctx, time.Duration(attempt)*k.backoff) {
			return false
		}
	}
}

// Close leaves the consumer group.
func (k *KafkaConsumer) Close() error { return k.reader.Close() }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
