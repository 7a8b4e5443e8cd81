// Package events publishes domain events (assignments, transfers, critical
// vitals) to Kafka. Publishing is best effort; callers log failures.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypePatientAssigned    = "assignment.created"
	TypePatientTransferred = "assignment.ended"
	TypeVitalsCritical     = "vitals.critical"
	TypeTransferRequested  = "transfer.requested"
	TypeTransferDecided    = "transfer.decided"
)

const source = "pflege-server"

// Event is the envelope written to the topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Key       string                 `json:"key"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher is implemented by Kafka, Nop and Recorder.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data map[string]interface{}) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one message per event, keyed so that events of one patient
// land on the same partition.
type Kafka struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafka(brokers []string, topic string) *Kafka {
	return newKafka(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

func newKafka(w messageWriter) *Kafka {
	return &Kafka{writer: w, now: time.Now}
}

func (k *Kafka) Publish(ctx context.Context, eventType, key string, data map[string]interface{}) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Key:       key,
		Data:      data,
		Timestamp: k.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msgKey := key
	if msgKey == "" {
		msgKey = event.ID
	}
	msg := kafka.Message{
		Key:   []byte(msgKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, map[string]interface{}) error { return nil }

// Recorder keeps published events in memory so tests can assert on them.
// The server never wires it; without KAFKA_BROKERS events go to Nop.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, eventType, key string, data map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Key:       key,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
