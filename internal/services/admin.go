package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/events"
	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// statusCommand matches any message starting with the "estado" keyword. The
// arguments are validated separately so a malformed command gets the usage.
var statusCommand = regexp.MustCompile(`(?i)^estado\b`)

// statusAliases are the statuses accepted by the WhatsApp command
var statusAliases = map[string]string{
	"completed":  models.OrderStatusCompleted,
	"completado": models.OrderStatusCompleted,
	"completada": models.OrderStatusCompleted,
	"canceled":   models.OrderStatusCanceled,
	"cancelled":  models.OrderStatusCanceled,
	"cancelado":  models.OrderStatusCanceled,
	"cancelada":  models.OrderStatusCanceled,
	"pending":    models.OrderStatusPending,
	"pendiente":  models.OrderStatusPending,
}

// ParseCommandStatus maps a status word from the chat command to an order status
func ParseCommandStatus(word string) (string, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(word))]
	return status, ok
}

// AdminCommands implements the administrator side of the conversation and
// the order operations shared with the admin HTTP API.
type AdminCommands struct {
	adminPhone  string
	adminDigits string
	store       storage.Store
	sessions    *SessionManager
	messenger   Messenger
	publisher   events.Publisher
	metrics     *metrics.Metrics
	restaurant  config.Restaurant
	loc         *time.Location
	now         func() time.Time
}

// IsAdmin reports whether phone is the configured administrator
func (a *AdminCommands) IsAdmin(phone string) bool {
	return a.adminDigits != "" && PhoneDigits(phone) == a.adminDigits
}

// Intercept handles the free-standing status command before the
// conversation engine sees the message. handled is false when text is not a
// command or the sender is not the administrator.
func (a *AdminCommands) Intercept(ctx context.Context, phone, text string) (reply string, handled bool, err error) {
	if !a.IsAdmin(phone) {
		return "", false, nil
	}
	text = strings.TrimSpace(text)
	if !statusCommand.MatchString(text) {
		return "", false, nil
	}

	// estado <id> <status>
	args := strings.Fields(text)
	if len(args) != 3 {
		return statusCommandUsageMessage(), true, nil
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil || id == 0 {
		return statusCommandUsageMessage(), true, nil
	}
	status, ok := ParseCommandStatus(args[2])
	if !ok {
		return statusCommandUsageMessage(), true, nil
	}

	order, err := a.store.GetOrder(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return orderNotFoundMessage(uint(id)), true, nil
	}
	if err != nil {
		return "", true, fmt.Errorf("admin: get order %d: %w", id, err)
	}

	a.sessions.Update(phone, func(s *Session) {
		s.Step = StepAdminConfirmStatusChange
		s.Data = SessionData{AdminOrderID: order.ID, AdminNewStatus: status}
	})
	log.Printf("🛠️ Admin requested order #%d → %s", order.ID, status)
	return statusChangeConfirmMessage(order, status), true, nil
}

func (a *AdminCommands) openMenu(_ context.Context, t *turn) (string, error) {
	a.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepAdminMenu
		s.Data = SessionData{}
	})
	return adminMenuMessage(), nil
}

func (a *AdminCommands) handleMenu(ctx context.Context, t *turn) (string, error) {
	switch t.input {
	case "1":
		a.sessions.Clear(t.phone)
		orders, err := a.store.ListPendingOrders(ctx)
		if err != nil {
			return "", fmt.Errorf("admin: list pending orders: %w", err)
		}
		return pendingOrdersMessage(orders), nil
	case "2":
		a.sessions.Clear(t.phone)
		summary, day, err := a.TodaySummary(ctx)
		if err != nil {
			return "", err
		}
		return dailySummaryMessage(summary, day), nil
	case "3":
		a.sessions.Update(t.phone, func(s *Session) { s.Step = StepAdminViewOrder })
		return adminOrderIDPrompt(), nil
	default:
		a.sessions.Clear(t.phone)
		return adminInvalidOptionMessage(), nil
	}
}

func (a *AdminCommands) handleViewOrder(ctx context.Context, t *turn) (string, error) {
	a.sessions.Clear(t.phone)

	id, err := strconv.ParseUint(strings.TrimPrefix(t.input, "#"), 10, 64)
	if err != nil || id == 0 {
		return invalidOrderIDMessage(), nil
	}
	order, err := a.store.GetOrder(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return orderNotFoundMessage(uint(id)), nil
	}
	if err != nil {
		return "", fmt.Errorf("admin: get order %d: %w", id, err)
	}
	return orderDetailMessage(order, a.loc), nil
}

func (a *AdminCommands) handleConfirmStatusChange(ctx context.Context, t *turn) (string, error) {
	a.sessions.Clear(t.phone)

	id := t.session.Data.AdminOrderID
	status := t.session.Data.AdminNewStatus
	if t.input != "1" || id == 0 || status == "" {
		return statusChangeAbortedMessage(), nil
	}

	_, err := a.ChangeStatus(ctx, id, status, "whatsapp")
	if errors.Is(err, storage.ErrNotFound) {
		return orderNotFoundMessage(id), nil
	}
	if err != nil {
		return "", err
	}
	return statusChangedMessage(id, status), nil
}

// ChangeStatus moves an order to status. Customers are told when their order
// is completed or canceled.
func (a *AdminCommands) ChangeStatus(ctx context.Context, id uint, status, changedBy string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("admin: %w: %q", models.ErrInvalidStatus, status)
	}
	order, err := a.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("admin: get order %d: %w", id, err)
	}
	previous := order.Status

	if err := a.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("admin: update order %d: %w", id, err)
	}
	order.Status = status
	log.Printf("✅ Order #%d status %s → %s (%s)", id, previous, status, changedBy)
	a.metrics.StatusChanged(status)

	if models.IsFinal(status) {
		a.notifyCustomer(ctx, order, status)
	}
	a.publishStatusChanged(ctx, order.ID, previous, status, changedBy)
	return order, nil
}

func (a *AdminCommands) notifyCustomer(ctx context.Context, order *models.Order, status string) {
	if order.Phone == "" {
		log.Printf("Order #%d has no phone on file, customer not notified", order.ID)
		return
	}
	if err := a.messenger.SendText(ctx, order.Phone, customerStatusMessage(order, status, a.restaurant)); err != nil {
		log.Printf("❌ Failed to notify customer of order #%d: %v", order.ID, err)
	}
}

func (a *AdminCommands) publishStatusChanged(ctx context.Context, id uint, from, to, changedBy string) {
	env, err := events.NewEnvelope(events.EventOrderStatusChanged, id, events.OrderStatusChangedPayload{
		OrderID:   id,
		From:      from,
		To:        to,
		ChangedBy: changedBy,
	})
	if err != nil {
		log.Printf("❌ %v", err)
		return
	}
	if err := a.publisher.Publish(ctx, env); err != nil {
		log.Printf("❌ Failed to publish %s for order #%d: %v", env.EventType, id, err)
	}
}

// DayBounds returns the start of the restaurant-local day containing t and
// the start of the next one.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Location is the restaurant time zone used for day boundaries
func (a *AdminCommands) Location() *time.Location {
	return a.loc
}

// TodaySummary summarizes the orders placed today in restaurant time
func (a *AdminCommands) TodaySummary(ctx context.Context) (*models.OrderSummary, time.Time, error) {
	return a.SummaryFor(ctx, a.now())
}

// SummaryFor summarizes the orders of the restaurant-local day containing t.
// The returned time is the start of that day.
func (a *AdminCommands) SummaryFor(ctx context.Context, t time.Time) (*models.OrderSummary, time.Time, error) {
	from, to := DayBounds(t, a.loc)
	orders, err := a.store.ListOrdersBetween(ctx, from, to)
	if err != nil {
		return nil, from, fmt.Errorf("admin: list orders of %s: %w", from.Format("2006-01-02"), err)
	}
	return models.Summarize(orders), from, nil
}

// SendDailySummary pushes today's summary to the restaurant contact, or to
// the administrator when no restaurant phone is configured.
func (a *AdminCommands) SendDailySummary(ctx context.Context) error {
	to := a.restaurant.Phone
	if to == "" {
		to = a.adminPhone
	}
	if to == "" {
		return errors.New("admin: no recipient for the daily summary")
	}
	summary, day, err := a.TodaySummary(ctx)
	if err != nil {
		return err
	}
	if err := a.messenger.SendText(ctx, to, dailySummaryMessage(summary, day)); err != nil {
		return fmt.Errorf("admin: send daily summary: %w", err)
	}
	return nil
}
