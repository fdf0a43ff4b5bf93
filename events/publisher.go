package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	"newspilot/logger"
	"newspilot/models"
)

// Publisher emits pipeline milestone events. The pipeline works the same
// with events disabled; NewFromBrokers returns a no-op publisher when no
// brokers are configured.
type Publisher interface {
	SuggestionsCreated(ctx context.Context, suggestions []models.Suggestion)
	AutopilotCompleted(ctx context.Context, outcome, category, message string, count int)
	BatchProcessed(ctx context.Context, attempted, succeeded int)
	Close()
}

// NewFromBrokers returns a Kafka-backed publisher, or a no-op one when
// brokers is empty.
func NewFromBrokers(brokers, source string) (Publisher, error) {
	if brokers == "" {
		return NopPublisher{}, nil
	}
	return newKafkaPublisher(brokers, source)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) SuggestionsCreated(context.Context, []models.Suggestion)         {}
func (NopPublisher) AutopilotCompleted(context.Context, string, string, string, int) {}
func (NopPublisher) BatchProcessed(context.Context, int, int)                        {}
func (NopPublisher) Close()                                                          {}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func newKafkaPublisher(brokers, source string) (*kafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	// Drain delivery reports; a lost event is logged, never fatal.
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Log.Errorf("events: delivery failed %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				logger.Log.Errorf("events: kafka error: %v", ev)
			}
		}
	}()

	return &kafkaPublisher{producer: p, source: source}, nil
}

func (k *kafkaPublisher) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		logger.Log.Warnf("events: %d events still queued after flush", remaining)
	}
	k.producer.Close()
}

func (k *kafkaPublisher) base(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    k.source,
		Version:   "1.0",
	}
}

func (k *kafkaPublisher) SuggestionsCreated(ctx context.Context, suggestions []models.Suggestion) {
	refs := make([]SuggestionRef, 0, len(suggestions))
	for _, s := range suggestions {
		refs = append(refs, SuggestionRef{URL: s.URL, Title: s.Title, Category: s.Category})
	}
	k.publish(SuggestionsCreatedEvent{
		BaseEvent:   k.base(SuggestionsCreated),
		Count:       len(refs),
		Suggestions: refs,
	})
}

func (k *kafkaPublisher) AutopilotCompleted(ctx context.Context, outcome, category, message string, count int) {
	k.publish(AutopilotCompletedEvent{
		BaseEvent: k.base(AutopilotCompleted),
		Outcome:   outcome,
		Category:  category,
		Message:   message,
		Count:     count,
	})
}

func (k *kafkaPublisher) BatchProcessed(ctx context.Context, attempted, succeeded int) {
	k.publish(BatchProcessedEvent{
		BaseEvent: k.base(BatchProcessed),
		Attempted: attempted,
		Succeeded: succeeded,
	})
}

func (k *kafkaPublisher) publish(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorf("events: marshal: %v", err)
		return
	}
	topic := Topic
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
	}, nil)
	if err != nil {
		logger.Log.Errorf("events: produce: %v", err)
	}
}
