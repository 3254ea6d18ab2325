package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

const (
	minNameLength    = 2
	minAddressLength = 10
)

// startOrder begins a new order with an empty cart
func (e *Engine) startOrder(ctx context.Context, t *turn) (string, error) {
	return e.showOrderProducts(ctx, t, nil)
}

// showOrderProducts lists the orderable products and caches them for the
// selection that follows. cart is carried over when adding more items.
func (e *Engine) showOrderProducts(ctx context.Context, t *turn, cart []CartItem) (string, error) {
	products, err := e.store.ListProducts(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}
	refs := productRefs(products)
	if len(refs) == 0 {
		e.sessions.Update(t.phone, func(s *Session) { s.Step = StepMainMenu })
		return menuUnavailableMessage(), nil
	}

	e.sessions.Update(t.phone, func(s *Session) {
		if cart == nil {
			s.Data = SessionData{}
		}
		s.Step = StepOrderStart
		s.Data.Products = refs
		s.Data.Selected = nil
		s.Data.SelectedIndex = 0
		s.Data.Cart = cart
	})
	return orderProductListMessage(refs, cart), nil
}

func (e *Engine) handleProductSelection(ctx context.Context, t *turn) (string, error) {
	products := t.session.Data.Products
	if len(products) == 0 {
		return e.showOrderProducts(ctx, t, t.session.Data.Cart)
	}

	picked, bad, ok := parseSelection(t.text, len(products))
	if !ok {
		return invalidSelectionMessage(bad, len(products)), nil
	}

	selected := make([]ProductRef, 0, len(picked))
	for _, idx := range picked {
		selected = append(selected, products[idx])
	}
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepOrderSelectQuantity
		s.Data.Selected = selected
		s.Data.SelectedIndex = 0
	})
	return quantityPrompt(selected[0], 1, len(selected)), nil
}

func (e *Engine) handleQuantity(ctx context.Context, t *turn) (string, error) {
	data := t.session.Data
	if data.SelectedIndex >= len(data.Selected) {
		return e.showOrderProducts(ctx, t, data.Cart)
	}
	current := data.Selected[data.SelectedIndex]

	qty, ok := parseQuantity(t.input)
	if !ok {
		return invalidQuantityMessage(current), nil
	}

	item := CartItem{ProductID: current.ID, Name: current.Name, UnitPrice: current.Price, Quantity: qty}
	next := data.SelectedIndex + 1
	updated := e.sessions.Update(t.phone, func(s *Session) {
		s.Data.Cart = append(s.Data.Cart, item)
		if next < len(s.Data.Selected) {
			s.Data.SelectedIndex = next
			return
		}
		s.Step = StepOrderMoreItems
		s.Data.Selected = nil
		s.Data.SelectedIndex = 0
	})

	if next < len(data.Selected) {
		return quantityPrompt(data.Selected[next], next+1, len(data.Selected)), nil
	}
	return moreItemsPrompt(updated.Data.Cart), nil
}

func (e *Engine) handleMoreItems(ctx context.Context, t *turn) (string, error) {
	switch {
	case isAffirmative(t.input):
		return e.showOrderProducts(ctx, t, t.session.Data.Cart)
	case isNegative(t.input):
		e.sessions.Update(t.phone, func(s *Session) { s.Step = StepOrderName })
		return namePrompt(), nil
	default:
		return moreItemsFallbackMessage(), nil
	}
}

func (e *Engine) handleName(_ context.Context, t *turn) (string, error) {
	name := strings.TrimSpace(t.text)
	if utf8.RuneCountInString(name) < minNameLength {
		return invalidNameMessage(), nil
	}
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepOrderDeliveryType
		s.Data.CustomerName = name
	})
	return deliveryTypePrompt(e.restaurant), nil
}

func (e *Engine) handleDeliveryType(_ context.Context, t *turn) (string, error) {
	switch {
	case wantsPickup(t.input):
		e.sessions.Update(t.phone, func(s *Session) {
			s.Step = StepOrderNotes
			s.Data.DeliveryType = models.DeliveryTypePickup
			s.Data.DeliveryFee = 0
			s.Data.Address = ""
		})
		return notesPrompt(), nil
	case wantsDelivery(t.input):
		fee := e.restaurant.DeliveryFee
		e.sessions.Update(t.phone, func(s *Session) {
			s.Step = StepOrderAddress
			s.Data.DeliveryType = models.DeliveryTypeDelivery
			s.Data.DeliveryFee = fee
		})
		return addressPrompt(), nil
	default:
		return invalidDeliveryTypeMessage(), nil
	}
}

func (e *Engine) handleAddress(_ context.Context, t *turn) (string, error) {
	address := strings.TrimSpace(t.text)
	if utf8.RuneCountInString(address) < minAddressLength {
		return invalidAddressMessage(), nil
	}
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepOrderNotes
		s.Data.Address = address
	})
	return notesPrompt(), nil
}

func (e *Engine) handleNotes(_ context.Context, t *turn) (string, error) {
	notes := strings.TrimSpace(t.text)
	if t.input == "no" {
		notes = ""
	}
	updated := e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepOrderConfirm
		s.Data.Notes = notes
	})
	return orderSummaryMessage(updated.Data, e.restaurant), nil
}

func (e *Engine) handleConfirm(ctx context.Context, t *turn) (string, error) {
	if !isAffirmative(t.input) {
		e.sessions.Clear(t.phone)
		return orderCanceledMessage(), nil
	}
	if _, err := e.checkout.Finalize(ctx, t.phone, t.messageID, t.session.Data); err != nil {
		return "", err
	}
	return "", nil
}
