package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"gorm.io/gorm"
)

// DatabaseStore implements Store on top of gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a gorm-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// DB exposes the underlying connection for health checks and migrations
func (s *DatabaseStore) DB() *gorm.DB {
	return s.db
}

func (s *DatabaseStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := s.db.WithContext(ctx).Order("sort_order, id").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListProducts returns available products, optionally limited to one category
func (s *DatabaseStore) ListProducts(ctx context.Context, categoryID *uint) ([]*models.Product, error) {
	q := s.db.WithContext(ctx).Where("available = ?", true)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	var products []*models.Product
	if err := q.Order("category_id, name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *DatabaseStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, notFound(err, "product %d", id)
	}
	return &product, nil
}

// UpsertCustomerByPhone returns the customer for phone, creating it when
// absent and renaming it when a different non-empty name is supplied.
func (s *DatabaseStore) UpsertCustomerByPhone(ctx context.Context, phone, name string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("phone = ?", phone).First(&customer)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			customer = models.Customer{Phone: phone, Name: name}
			return tx.Create(&customer).Error
		}
		if result.Error != nil {
			return result.Error
		}
		if name != "" && customer.Name != name {
			customer.Name = name
			return tx.Model(&customer).Update("name", name).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert customer %s: %w", phone, err)
	}
	return &customer, nil
}

// CreateOrder inserts the order header and its items in one transaction
func (s *DatabaseStore) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if err := validateNewOrder(in); err != nil {
		return nil, err
	}
	order := buildOrder(in)
	items := order.Items
	order.Items = nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.Items = items

	log.Printf("🧾 Order #%d stored (%d items, total %.2f)", order.ID, len(items), order.Total)
	return order, nil
}

func (s *DatabaseStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, notFound(err, "order %d", id)
	}
	return &order, nil
}

func (s *DatabaseStore) ListPendingOrders(ctx context.Context) ([]*models.Order, error) {
	return s.ListOrders(ctx, OrderFilter{Status: models.OrderStatusPending})
}

func (s *DatabaseStore) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	return s.ListOrders(ctx, OrderFilter{From: from, To: to})
}

func (s *DatabaseStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Phone != "" {
		q = q.Where("phone = ?", filter.Phone)
	}
	// bounds arrive in the restaurant zone; rows are stored in UTC
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var orders []*models.Order
	if err := q.Order("created_at, id").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *DatabaseStore) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *DatabaseStore) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("update order %d: %w: %q", id, models.ErrInvalidStatus, status)
	}
	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("update order %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *DatabaseStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DatabaseStore) AddCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *DatabaseStore) AddProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func notFound(err error, format string, args ...interface{}) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
