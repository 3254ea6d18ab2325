package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/dedup"
	"github.com/Ananth-NQI/orderbot-backend/internal/handlers"
	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/middleware"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// Deps is everything the HTTP layer needs
type Deps struct {
	Config  *config.Config
	Version string
	Store   storage.Store
	Engine  *services.Engine
	Deduper dedup.Deduper
	Metrics *metrics.Metrics
}

// NewApp creates the fiber app with the shared middleware stack
func NewApp(name string, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ErrorHandler: errorHandler,
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.AdminKeyHeader,
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(middleware.Metrics(m))
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to OrderBot Backend!",
			"version": d.Version,
			"endpoints": fiber.Map{
				"health":        "/health",
				"metrics":       "/metrics",
				"webhook":       "/webhook/whatsapp",
				"test_whatsapp": "/test/whatsapp",
				"admin":         "/admin",
			},
		})
	})

	health := handlers.NewHealthHandler(d.Version, d.Store, d.Engine.Sessions())
	app.Get("/health", health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	// ========== WEBHOOK ROUTES ==========
	whatsapp := handlers.NewWhatsAppHandler(d.Engine, d.Deduper)
	webhooks := app.Group("/webhook")
	if d.Config.DisableWebhookValidation {
		log.Println("⚠️  WhatsApp webhook validation DISABLED")
		webhooks.Post("/whatsapp", whatsapp.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(d.Config.Twilio.AuthToken), whatsapp.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if d.Config.IsDevelopment() {
		app.Post("/test/whatsapp", whatsapp.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	adminHandler := handlers.NewAdminHandler(d.Store, d.Engine)
	admin := app.Group("/admin", middleware.RequireAdminKey(d.Config.AdminAPIKey))

	admin.Get("/sessions", adminHandler.ListSessions)
	admin.Get("/sessions/:phone", adminHandler.GetSession)
	admin.Delete("/sessions/:phone", adminHandler.ClearSession)

	admin.Get("/orders", adminHandler.ListOrders)
	admin.Get("/orders/summary", adminHandler.Summary)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)
}
