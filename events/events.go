// Package events publishes domain events (tier changes, attributions) to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Govind-619/StudyHub/utils"
	"github.com/segmentio/kafka-go"
)

// Event types
const (
	TierPromoted       = "creator.tier.promoted"
	TierDemoted        = "creator.tier.demoted"
	AttributionCreated = "payment.attribution.created"
	PaymentRefunded    = "payment.refunded"
)

// Event is the envelope written to the bus
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Key        string                 `json:"key"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the info log. It is the fallback when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	utils.LogInfo("event %s", body)
	return nil
}

func (LogPublisher) Close() error { return nil }

// KafkaPublisher writes each event as one message keyed by Event.Key
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// RecordingPublisher keeps published events in memory; used by tests
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// OfType returns the recorded events of the given type
func (r *RecordingPublisher) OfType(eventType string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
