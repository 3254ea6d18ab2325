// Package events publishes order lifecycle events for downstream consumers
// (kitchen displays, analytics).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Envelope wraps every published event
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// ItemLine is one order line inside an event payload
type ItemLine struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID      uint       `json:"order_id"`
	Phone        string     `json:"phone"`
	CustomerName string     `json:"customer_name"`
	DeliveryType string     `json:"delivery_type"`
	Items        []ItemLine `json:"items"`
	Subtotal     float64    `json:"subtotal"`
	DeliveryFee  float64    `json:"delivery_fee"`
	Total        float64    `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID   uint   `json:"order_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"` // "whatsapp" or "api"
}

// Producer is the service name stamped on every envelope
const Producer = "orderbot"

// NewEnvelope marshals payload into a fresh envelope
func NewEnvelope(eventType string, orderID uint, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      Producer,
		CorrelationID: fmt.Sprintf("%d", orderID),
		Payload:       raw,
	}, nil
}

// Publisher delivers envelopes to a broker
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close() error                            { return nil }
