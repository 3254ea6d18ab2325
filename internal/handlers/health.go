package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/orderbot-backend/internal/services"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    storage.Store
	sessions *services.SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, sessions *services.SessionManager) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code := "healthy", fiber.StatusOK
	storageStatus := "connected"
	if err := h.store.Ping(ctx); err != nil {
		status, code = "unhealthy", fiber.StatusServiceUnavailable
		storageStatus = "error: " + err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"status":          status,
		"service":         "OrderBot Backend",
		"version":         h.Version,
		"storage":         storageStatus,
		"active_sessions": len(h.sessions.ActiveSessions()),
	})
}
