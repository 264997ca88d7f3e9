// Package kafka publishes ledger events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/congo-pay/txengine/internal/events"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "ledger_events"

const (
	publishTimeout = 5 * time.Second
	batchTimeout   = 10 * time.Millisecond
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the JSON payload of one message.
type envelope struct {
	RunID   string       `json:"run_id,omitempty"`
	Event   events.Event `json:"event"`
	Message string       `json:"message"`
	At      time.Time    `json:"at"`
}

// Publisher is an events.Sink that writes each event to Kafka. Record only
// enqueues; delivery failures are logged and dropped so a broker outage never
// stalls a pass.
type Publisher struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher builds a publisher for brokers and topic. Messages are written
// asynchronously; delivery failures surface through the writer's completion
// callback and are logged there.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return newPublisher(newWriter(brokers, topic, logger), logger)
}

func newWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
		Async:        true,
		Completion:   completion(logger),
	}
}

// completion logs messages the async writer failed to deliver.
func completion(logger *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil || logger == nil {
			return
		}
		logger.Warn("deliver events", slog.Int("messages", len(msgs)), slog.Any("error", err))
	}
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger, now: time.Now}
}

// ForRun returns a publisher sharing p's writer that stamps messages with
// runID.
func (p *Publisher) ForRun(runID string) events.Sink {
	cp := *p
	cp.runID = runID
	return &cp
}

// Record publishes e keyed by client, so one client's events stay ordered on
// a single partition.
func (p *Publisher) Record(e events.Event) {
	msg, err := p.encode(e)
	if err != nil {
		p.warn("encode event", e, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.warn("publish event", e, err)
	}
}

func (p *Publisher) encode(e events.Event) (kafka.Message, error) {
	data, err := json.Marshal(envelope{
		RunID:   p.runID,
		Event:   e,
		Message: e.Message(),
		At:      p.now().UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.Client), 10)),
		Value: data,
	}, nil
}

func (p *Publisher) warn(msg string, e events.Event, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, slog.String("event", string(e.Kind)), slog.Any("error", err))
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
