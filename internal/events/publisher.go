package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"marketplace-orders/internal/core"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeLineItemRemoved   EventType = "order.line_item_removed"
	EventTypeOrderRecalculated EventType = "order.recalculated"
)

// OrderEvent is the envelope written to the orders topic.
type OrderEvent struct {
	ID              string          `json:"id"`
	Type            EventType       `json:"type"`
	OrderID         int64           `json:"order_id"`
	UserID          int64           `json:"user_id,omitempty"`
	LineItemID      int64           `json:"line_item_id,omitempty"`
	ItemTotal       decimal.Decimal `json:"item_total"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Publisher announces committed order changes.
type Publisher interface {
	PublishLineItemRemoved(ctx context.Context, order *core.Order, lineItemID int64) error
	PublishOrderRecalculated(ctx context.Context, order *core.Order) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to Kafka, keyed by order id so that
// events of one order stay on one partition.
type KafkaPublisher struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewPublisher(writer, logger)
}

// NewPublisher wraps an existing writer.
func NewPublisher(writer MessageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: writer, logger: logger, now: time.Now}
}

func (p *KafkaPublisher) PublishLineItemRemoved(ctx context.Context, order *core.Order, lineItemID int64) error {
	event := p.createEvent(EventTypeLineItemRemoved, order)
	event.LineItemID = lineItemID
	return p.publish(ctx, event)
}

func (p *KafkaPublisher) PublishOrderRecalculated(ctx context.Context, order *core.Order) error {
	return p.publish(ctx, p.createEvent(EventTypeOrderRecalculated, order))
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("closing kafka publisher")
	return p.writer.Close()
}

func (p *KafkaPublisher) createEvent(eventType EventType, order *core.Order) *OrderEvent {
	return &OrderEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		OrderID:         order.ID,
		UserID:          order.UserID,
		ItemTotal:       order.ItemTotal,
		AdjustmentTotal: order.AdjustmentTotal,
		Timestamp:       p.now().UTC(),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			"event_id", event.ID, "event_type", string(event.Type), "order_id", event.OrderID, "error", err)
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "event published",
		"event_id", event.ID, "event_type", string(event.Type), "order_id", event.OrderID)
	return nil
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishLineItemRemoved(context.Context, *core.Order, int64) error { return nil }
func (NopPublisher) PublishOrderRecalculated(context.Context, *core.Order) error      { return nil }
func (NopPublisher) Close() error                                                     { return nil }
