package handlers

import (
	"errors"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

const dateLayout = "2006-01-02"

// AdminHandler serves the session and order management API
type AdminHandler struct {
	store    storage.Store
	sessions *services.SessionManager
	admin    *services.AdminCommands
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, engine *services.Engine) *AdminHandler {
	return &AdminHandler{
		store:    store,
		sessions: engine.Sessions(),
		admin:    engine.Admin(),
	}
}

// ListSessions returns every live conversation with aggregate stats
func (h *AdminHandler) ListSessions(c *fiber.Ctx) error {
	sessions := h.sessions.ActiveSessions()
	return c.JSON(fiber.Map{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
		"stats":    h.sessions.Stats(),
		"ttl":      h.sessions.TTL().String(),
	})
}

// GetSession returns the conversation state of one sender
func (h *AdminHandler) GetSession(c *fiber.Ctx) error {
	phone, err := phoneParam(c)
	if err != nil {
		return err
	}
	session, ok := h.sessions.Peek(phone)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"session": session,
	})
}

// ClearSession resets a sender's conversation
func (h *AdminHandler) ClearSession(c *fiber.Ctx) error {
	phone, err := phoneParam(c)
	if err != nil {
		return err
	}
	h.sessions.Clear(phone)
	log.Printf("🧹 Session of %s cleared via admin API", phone)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Session cleared",
	})
}

// ListOrders lists orders filtered by ?status=, ?phone=, ?date=YYYY-MM-DD and ?limit=
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	filter := storage.OrderFilter{
		Status: c.Query("status"),
		Phone:  services.NormalizeSender(c.Query("phone")),
		Limit:  c.QueryInt("limit", 0),
	}
	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Unknown status",
			"statuses": models.OrderStatuses(),
		})
	}
	if date := c.Query("date"); date != "" {
		day, err := time.ParseInLocation(dateLayout, date, h.admin.Location())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date must be YYYY-MM-DD",
			})
		}
		filter.From, filter.To = services.DayBounds(day, h.admin.Location())
	}

	orders, err := h.store.ListOrders(c.UserContext(), filter)
	if err != nil {
		log.Printf("❌ admin: list orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch orders",
		})
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetOrder returns one order with its items
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := orderIDParam(c)
	if err != nil {
		return err
	}
	order, err := h.store.GetOrder(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	}
	if err != nil {
		log.Printf("❌ admin: get order %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch order",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

// UpdateOrderStatus moves an order to any known status. Customers are told
// about completed and canceled orders.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	order, err := h.admin.ChangeStatus(c.UserContext(), id, req.Status, "api")
	switch {
	case errors.Is(err, models.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Unknown status",
			"statuses": models.OrderStatuses(),
		})
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Order not found",
		})
	case err != nil:
		log.Printf("❌ admin: update order %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update order",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

// Summary returns the day summary (?date=YYYY-MM-DD, default today) and the
// all-time order counts by status.
func (h *AdminHandler) Summary(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		summary *models.OrderSummary
		day     time.Time
		err     error
	)
	if date := c.Query("date"); date != "" {
		parsed, perr := time.ParseInLocation(dateLayout, date, h.admin.Location())
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date must be YYYY-MM-DD",
			})
		}
		summary, day, err = h.admin.SummaryFor(ctx, parsed)
	} else {
		summary, day, err = h.admin.TodaySummary(ctx)
	}
	if err != nil {
		log.Printf("❌ admin: summary: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build summary",
		})
	}

	counts, err := h.store.CountOrdersByStatus(ctx)
	if err != nil {
		log.Printf("❌ admin: count orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count orders",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"date":      day.Format(dateLayout),
		"summary":   summary,
		"all_time":  counts,
		"time_zone": h.admin.Location().String(),
	})
}

func phoneParam(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(c.Params("phone"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid phone")
	}
	phone := services.NormalizeSender(raw)
	if phone == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}
	return phone, nil
}

func orderIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}
