package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leostore/storefront/internal/models"
	"github.com/segmentio/kafka-go"
)

// Publisher writes order events to Kafka through a buffered inbox so a slow
// broker never stalls a checkout. Close flushes whatever is still queued.
type Publisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	service string
	logger  *slog.Logger
}

func NewPublisher(brokers []string, topic, service string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, 256),
		closeCh: make(chan struct{}),
		service: service,
		logger:  logger,
	}
}

// Start runs the writer loop until ctx is cancelled, then drains the inbox
// and closes the underlying writer.
func (p *Publisher) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.closeWriter()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Publisher) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			p.closeWriter()
			return
		}
	}
}

func (p *Publisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.logger.Error("publish event", "err", err, "topic", p.w.Topic)
	}
}

func (p *Publisher) closeWriter() {
	if err := p.w.Close(); err != nil {
		p.logger.Error("close kafka writer", "err", err)
	}
}

// WaitClosed blocks until the writer loop has flushed and exited.
func (p *Publisher) WaitClosed() { <-p.closeCh }

func (p *Publisher) OrderCreated(o *models.Order) {
	items := make([]OrderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	p.publish(TypeOrderCreated, o.OrderNumber, OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Items:       items,
	})
}

func (p *Publisher) OrderStatusChanged(o *models.Order, fromStatus string) {
	p.publish(TypeOrderStatusChanged, o.OrderNumber, OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		FromStatus:  fromStatus,
		ToStatus:    o.Status,
	})
}

func (p *Publisher) publish(eventType, correlationID string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal event payload", "err", err, "event_type", eventType)
		return
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		CorrelationID: correlationID,
		Payload:       body,
	}

	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal event envelope", "err", err, "event_type", eventType)
		return
	}

	msg := kafka.Message{
		Key:   []byte(correlationID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn("event inbox full, dropping event", "event_type", eventType, "correlation_id", correlationID)
	}
}
