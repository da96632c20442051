// Package events publishes run lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"streamline/internal/config"
	"streamline/internal/logging"
)

// Event types beyond plain state names.
const (
	TypeStateChanged = "state_changed"
	TypeCleanedUp    = "cleaned_up"
)

// Event is one lifecycle notification for a run.
type Event struct {
	Type   string    `json:"type"`
	RunID  string    `json:"run_id"`
	JobID  string    `json:"job_id,omitempty"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// New returns a Kafka publisher when events are enabled, otherwise Nop.
func New(cfg *config.Config, logger *slog.Logger) Publisher {
	if cfg == nil || !cfg.Events.Enabled || len(cfg.Events.Brokers) == 0 {
		return Nop{}
	}
	return NewKafka(cfg.Events.Brokers, cfg.Events.Topic, logger)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes events as JSON messages keyed by run id, so a run's events
// stay ordered within one partition.
type Kafka struct {
	writer messageWriter
	logger *slog.Logger
	once   sync.Once
}

// NewKafka builds a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string, logger *slog.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafka(writer, logger)
}

func newKafka(writer messageWriter, logger *slog.Logger) *Kafka {
	return &Kafka{writer: writer, logger: logging.NewComponentLogger(logger, "events")}
}

func (k *Kafka) Publish(ctx context.Context, evt Event) error {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.RunID),
		Value: payload,
		Time:  evt.At,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	k.logger.Debug("event published",
		logging.String(logging.FieldRunID, evt.RunID),
		logging.String("type", evt.Type),
		logging.String("state", evt.State),
	)
	return nil
}

func (k *Kafka) Close() error {
	var err error
	k.once.Do(func() { err = k.writer.Close() })
	return err
}
