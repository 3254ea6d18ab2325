package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Order is a finalized customer order together with its line items
type Order struct {
	gorm.Model
	CustomerID      uint        `json:"customer_id" gorm:"index;not null"`
	Phone           string      `json:"phone" gorm:"index"`
	CustomerName    string      `json:"customer_name"`
	Status          string      `json:"status" gorm:"index;default:pending"`
	Subtotal        float64     `json:"subtotal"`
	DeliveryFee     float64     `json:"delivery_fee"`
	Total           float64     `json:"total"`
	DeliveryType    string      `json:"delivery_type"` // "pickup" or "delivery"
	DeliveryAddress string      `json:"delivery_address"`
	Notes           string      `json:"notes"`
	Items           []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// OrderItem is a single line of an order. UnitPrice is the product price at
// the moment the order was placed.
type OrderItem struct {
	gorm.Model
	OrderID     uint    `json:"order_id" gorm:"index;not null"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

// Order status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
	OrderStatusCanceled  = "canceled"

	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

// ErrInvalidStatus is returned when a status string is not one of the known order states
var ErrInvalidStatus = errors.New("invalid order status")

var orderStatuses = map[string]bool{
	OrderStatusPending:   true,
	OrderStatusPreparing: true,
	OrderStatusInTransit: true,
	OrderStatusDelivered: true,
	OrderStatusCompleted: true,
	OrderStatusCanceled:  true,
}

// ValidOrderStatus reports whether status is a known order state
func ValidOrderStatus(status string) bool {
	return orderStatuses[status]
}

// OrderStatuses returns every known status in lifecycle order
func OrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPreparing,
		OrderStatusInTransit,
		OrderStatusDelivered,
		OrderStatusCompleted,
		OrderStatusCanceled,
	}
}

// IsFinal reports whether the customer should be told about this status
func IsFinal(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCanceled
}

// BeforeCreate fills the status and delivery type defaults and trims free text
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.DeliveryType == "" {
		o.DeliveryType = DeliveryTypePickup
	}
	o.DeliveryAddress = strings.TrimSpace(o.DeliveryAddress)
	o.Notes = strings.TrimSpace(o.Notes)
	return nil
}

// ComputeTotals sets line subtotals, Subtotal and Total from the items and fee
func (o *Order) ComputeTotals() {
	o.Subtotal = 0
	for i := range o.Items {
		o.Items[i].Subtotal = float64(o.Items[i].Quantity) * o.Items[i].UnitPrice
		o.Subtotal += o.Items[i].Subtotal
	}
	if o.DeliveryType != DeliveryTypeDelivery {
		o.DeliveryFee = 0
	}
	o.Total = o.Subtotal + o.DeliveryFee
}

// ItemCount returns the number of units across all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
