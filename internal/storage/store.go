package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrEmptyOrder is returned when an order is submitted without line items
	ErrEmptyOrder = errors.New("order has no items")
)

// NewOrder carries everything needed to persist an order and its items
type NewOrder struct {
	CustomerID      uint
	Phone           string
	CustomerName    string
	Items           []models.OrderItem
	DeliveryType    string
	DeliveryFee     float64
	DeliveryAddress string
	Notes           string
}

// OrderFilter narrows ListOrders. Zero values mean "no filter".
type OrderFilter struct {
	Status string
	Phone  string
	From   time.Time
	To     time.Time
	Limit  int
}

// Store defines the repository used by the conversation engine and the admin API
type Store interface {
	// Menu operations
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListProducts(ctx context.Context, categoryID *uint) ([]*models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)

	// Customer operations
	UpsertCustomerByPhone(ctx context.Context, phone, name string) (*models.Customer, error)

	// Order operations
	CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListPendingOrders(ctx context.Context) ([]*models.Order, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error)
	CountOrdersByStatus(ctx context.Context) (map[string]int64, error)
	UpdateOrderStatus(ctx context.Context, id uint, status string) error

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
}

// MenuSeeder is implemented by stores that accept menu data from the
// restaurant profile.
type MenuSeeder interface {
	AddCategory(ctx context.Context, c *models.Category) error
	AddProduct(ctx context.Context, p *models.Product) error
}

func validateNewOrder(in NewOrder) error {
	if len(in.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return errors.New("order item quantity must be positive")
		}
	}
	return nil
}

// buildOrder turns a NewOrder into a models.Order with computed totals
func buildOrder(in NewOrder) *models.Order {
	order := &models.Order{
		CustomerID:      in.CustomerID,
		Phone:           in.Phone,
		CustomerName:    in.CustomerName,
		Status:          models.OrderStatusPending,
		DeliveryType:    in.DeliveryType,
		DeliveryFee:     in.DeliveryFee,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Items:           make([]models.OrderItem, len(in.Items)),
	}
	copy(order.Items, in.Items)
	order.ComputeTotals()
	return order
}
