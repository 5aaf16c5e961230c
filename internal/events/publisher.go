package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/medscan/radiology-service/internal/utils"
)

// Topic all radiology domain events are published on.
const Topic = "radiology.events"

const (
	EventTypeScanAnnotated   = "scan.annotated"
	EventTypeReportFinalized = "report.finalized"
)

// Event is the envelope for domain events.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// ScanAnnotatedEvent is emitted after a successful inference run.
type ScanAnnotatedEvent struct {
	ScanID         uint    `json:"scan_id"`
	PatientID      uint    `json:"patient_id"`
	PredictedClass string  `json:"predicted_class"`
	Confidence     float64 `json:"confidence"`
}

// ReportFinalizedEvent is emitted when a radiologist finalizes a report.
type ReportFinalizedEvent struct {
	ReportID      uint   `json:"report_id"`
	ScanID        uint   `json:"scan_id"`
	RadiologistID *uint  `json:"radiologist_id"`
	Impression    string `json:"impression"`
}

// EventPublisher publishes domain events. Publishing is best effort;
// callers log failures and move on.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// KafkaEventPublisher publishes events to kafka via watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    utils.Logger
}

// NewKafkaEventPublisher connects a watermill kafka publisher.
func NewKafkaEventPublisher(brokers []string, logger utils.Logger) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{publisher: publisher, logger: logger}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// MockEventPublisher records events in memory. Used in tests and as
// the fallback when no brokers are configured.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger utils.Logger
}

func NewMockEventPublisher(logger utils.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (p *MockEventPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, Event{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})

	if p.logger != nil {
		p.logger.Debug("event published", "type", eventType)
	}

	return nil
}

func (p *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a snapshot of recorded events.
func (p *MockEventPublisher) GetPublishedEvents() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ClearEvents resets the recorded events.
func (p *MockEventPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
