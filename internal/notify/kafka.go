package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/twmb/franz-go/pkg/kgo"
)

const DefaultTopic = "artesano.orders"

// Producer is the subset of *kgo.Client used for publication.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes order and course events to a topic, keyed by order id.
type KafkaPublisher struct {
	producer Producer
	topic    string
	closer   func()
}

var _ Handler = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers")
	}
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("kgo.NewClient: %w", err)
	}

	return &KafkaPublisher{
		producer: client,
		topic:    topic,
		closer:   client.Close,
	}, nil
}

// NewKafkaPublisherWithProducer wraps an existing producer; Close does not close it.
func NewKafkaPublisherWithProducer(producer Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic, closer: func() {}}
}

func (k *KafkaPublisher) Name() string { return "kafka" }

type eventMessage struct {
	Type        string     `json:"type"`
	OrderID     uuid.UUID  `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	Email       string     `json:"email"`
	Total       string     `json:"total"`
	Currency    string     `json:"currency"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CourseID    *uuid.UUID `json:"course_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

func (k *KafkaPublisher) Handle(ctx context.Context, event domain.Event) error {
	msg, err := toEventMessage(event)
	if err != nil {
		return err
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(msg.OrderID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(msg.Type)},
		},
	}

	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producer.ProduceSync: %w", err)
	}

	return nil
}

func (k *KafkaPublisher) Close() {
	k.closer()
}

func toEventMessage(event domain.Event) (eventMessage, error) {
	var (
		order    domain.Order
		courseID *uuid.UUID
		email    string
	)

	switch e := event.(type) {
	case domain.OrderPaid:
		order, email = e.Order, e.Order.CustomerEmail
	case domain.CourseAccessIssued:
		order, email = e.Order, e.Email
		courseID = &e.CourseID
	default:
		return eventMessage{}, fmt.Errorf("%w: %T", errUnexpectedEvent, event)
	}

	return eventMessage{
		Type:        event.EventType(),
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Email:       email,
		Total:       order.Total.StringFixed(2),
		Currency:    order.Currency.String(),
		PaidAt:      order.PaidAt,
		CourseID:    courseID,
		OccurredAt:  time.Now().UTC(),
	}, nil
}
