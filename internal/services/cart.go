package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

// MaxQuantity caps the quantity of a single cart line
const MaxQuantity = 99

// CartItem is one line of the cart before the order is placed
type CartItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity
func (c CartItem) Subtotal() float64 {
	return c.UnitPrice * float64(c.Quantity)
}

func cartSubtotal(items []CartItem) float64 {
	total := 0.0
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func cartUnits(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// orderTotal adds the delivery fee when the order is delivered
func orderTotal(d SessionData) float64 {
	total := cartSubtotal(d.Cart)
	if d.DeliveryType == models.DeliveryTypeDelivery {
		total += d.DeliveryFee
	}
	return total
}

func orderItems(items []CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal(),
		})
	}
	return out
}

// parseSelection parses comma separated 1-based indices into a list of n
// entries. Every token must be a valid index, empty ones included. On
// failure it returns the offending token ("" for an empty one).
func parseSelection(input string, n int) ([]int, string, bool) {
	var picked []int
	for _, raw := range strings.Split(input, ",") {
		tok := strings.TrimSpace(raw)
		idx, err := strconv.Atoi(tok)
		if err != nil || idx < 1 || idx > n {
			return nil, tok, false
		}
		picked = append(picked, idx-1)
	}
	return picked, "", true
}

// parseIndex parses a single 1-based index into a list of n entries
func parseIndex(input string, n int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx - 1, true
}

func parseQuantity(input string) (int, bool) {
	q, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || q < 1 || q > MaxQuantity {
		return 0, false
	}
	return q, true
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
