package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/events"
	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// Checkout turns a confirmed cart into a persisted order and fans out the
// notifications.
type Checkout struct {
	store      storage.Store
	sessions   *SessionManager
	messenger  Messenger
	publisher  events.Publisher
	metrics    *metrics.Metrics
	restaurant config.Restaurant
	loc        *time.Location
}

// Finalize resolves the customer, stores the order with its items in one
// transaction and then notifies the customer and the restaurant. The session
// is cleared as soon as the order exists; notification failures are only
// logged.
func (c *Checkout) Finalize(ctx context.Context, phone, messageID string, data SessionData) (*models.Order, error) {
	if len(data.Cart) == 0 {
		return nil, fmt.Errorf("checkout %s: %w", phone, storage.ErrEmptyOrder)
	}

	deliveryType := data.DeliveryType
	if deliveryType == "" {
		deliveryType = models.DeliveryTypePickup
	}
	fee := 0.0
	address := ""
	if deliveryType == models.DeliveryTypeDelivery {
		fee = data.DeliveryFee
		address = data.Address
	}

	customer, err := c.store.UpsertCustomerByPhone(ctx, phone, data.CustomerName)
	if err != nil {
		return nil, fmt.Errorf("checkout: resolve customer %s: %w", phone, err)
	}

	order, err := c.store.CreateOrder(ctx, storage.NewOrder{
		CustomerID:      customer.ID,
		Phone:           phone,
		CustomerName:    data.CustomerName,
		Items:           orderItems(data.Cart),
		DeliveryType:    deliveryType,
		DeliveryFee:     fee,
		DeliveryAddress: address,
		Notes:           data.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: create order for %s: %w", phone, err)
	}

	c.sessions.Clear(phone)
	log.Printf("✅ Order #%d created for %s (%d items, total %s)", order.ID, phone, len(order.Items), money(order.Total))
	c.metrics.OrderCreated(order.Total)

	c.notify(ctx, phone, messageID, order, data)
	return order, nil
}

func (c *Checkout) notify(ctx context.Context, phone, messageID string, order *models.Order, data SessionData) {
	if err := c.messenger.SendText(ctx, phone, orderConfirmationMessage(order, data, c.restaurant)); err != nil {
		log.Printf("❌ Failed to send confirmation for order #%d: %v", order.ID, err)
	}
	if messageID != "" {
		if err := c.messenger.SendReaction(ctx, phone, messageID, "✅"); err != nil {
			log.Printf("Failed to react to %s: %v", messageID, err)
		}
	}

	if c.restaurant.Phone == "" {
		log.Printf("⚠️ No restaurant phone configured, order #%d notification skipped", order.ID)
	} else if err := c.messenger.SendText(ctx, c.restaurant.Phone, restaurantNotificationMessage(order, c.loc)); err != nil {
		log.Printf("❌ Failed to notify restaurant about order #%d: %v", order.ID, err)
	}

	c.publishCreated(ctx, order)
}

func (c *Checkout) publishCreated(ctx context.Context, order *models.Order) {
	payload := events.OrderCreatedPayload{
		OrderID:      order.ID,
		Phone:        order.Phone,
		CustomerName: order.CustomerName,
		DeliveryType: order.DeliveryType,
		Subtotal:     order.Subtotal,
		DeliveryFee:  order.DeliveryFee,
		Total:        order.Total,
	}
	for _, it := range order.Items {
		payload.Items = append(payload.Items, events.ItemLine{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	env, err := events.NewEnvelope(events.EventOrderCreated, order.ID, payload)
	if err != nil {
		log.Printf("❌ %v", err)
		return
	}
	if err := c.publisher.Publish(ctx, env); err != nil {
		log.Printf("❌ Failed to publish %s for order #%d: %v", env.EventType, order.ID, err)
	}
}
