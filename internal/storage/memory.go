package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

// MemoryStore holds all data in memory for local runs and tests
type MemoryStore struct {
	categories map[uint]*models.Category
	products   map[uint]*models.Product
	customers  map[string]*models.Customer
	orders     map[uint]*models.Order

	menuMu     sync.RWMutex
	customerMu sync.Mutex
	orderMu    sync.RWMutex

	// Counters for ID generation
	categoryCounter uint
	productCounter  uint
	customerCounter uint
	orderCounter    uint

	now func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[uint]*models.Category),
		products:   make(map[uint]*models.Product),
		customers:  make(map[string]*models.Customer),
		orders:     make(map[uint]*models.Order),
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source used for new records
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.now = now
}

// Menu operations
func (m *MemoryStore) AddCategory(ctx context.Context, c *models.Category) error {
	m.menuMu.Lock()
	defer m.menuMu.Unlock()

	m.categoryCounter++
	c.ID = m.categoryCounter
	c.CreatedAt = m.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *MemoryStore) AddProduct(ctx context.Context, p *models.Product) error {
	m.menuMu.Lock()
	defer m.menuMu.Unlock()

	if _, ok := m.categories[p.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", p.CategoryID, ErrNotFound)
	}
	m.productCounter++
	p.ID = m.productCounter
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	categories := make([]*models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		categories = append(categories, &cp)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, categoryID *uint) ([]*models.Product, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	var products []*models.Product
	for _, p := range m.products {
		if !p.Available {
			continue
		}
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		cp := *p
		products = append(products, &cp)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].CategoryID != products[j].CategoryID {
			return products[i].CategoryID < products[j].CategoryID
		}
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	p, exists := m.products[id]
	if !exists {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Customer operations
func (m *MemoryStore) UpsertCustomerByPhone(ctx context.Context, phone, name string) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	customer, exists := m.customers[phone]
	if !exists {
		m.customerCounter++
		customer = &models.Customer{Phone: phone, Name: name}
		customer.ID = m.customerCounter
		customer.CreatedAt = m.now()
		customer.UpdatedAt = customer.CreatedAt
		m.customers[phone] = customer
	} else if name != "" && customer.Name != name {
		customer.Name = name
		customer.UpdatedAt = m.now()
	}
	cp := *customer
	return &cp, nil
}

// Order operations
func (m *MemoryStore) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if err := validateNewOrder(in); err != nil {
		return nil, err
	}
	order := buildOrder(in)

	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	m.orderCounter++
	now := m.now()
	order.ID = m.orderCounter
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt = now
	}
	m.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return cloneOrder(order), nil
}

func (m *MemoryStore) ListPendingOrders(ctx context.Context) ([]*models.Order, error) {
	return m.ListOrders(ctx, OrderFilter{Status: models.OrderStatusPending})
}

func (m *MemoryStore) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	return m.ListOrders(ctx, OrderFilter{From: from, To: to})
}

func (m *MemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, o := range m.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Phone != "" && o.Phone != filter.Phone {
			continue
		}
		if !filter.From.IsZero() && o.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !o.CreatedAt.Before(filter.To) {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func (m *MemoryStore) CountOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	counts := make(map[string]int64)
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("update order %d: %w: %q", id, models.ErrInvalidStatus, status)
	}
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	order.Status = status
	order.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = make([]models.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}
