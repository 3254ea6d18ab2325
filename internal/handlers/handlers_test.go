package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/dedup"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

const (
	customer = "+5215551234567"
	admin    = "+5215559990000"
)

var fixedNow = time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

type testEnv struct {
	app    *fiber.App
	store  *storage.MemoryStore
	engine *services.Engine
	msgr   *services.CaptureMessenger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	store.SetClock(func() time.Time { return fixedNow })
	menu := []config.MenuCategory{
		{Name: "Tacos", Products: []config.MenuProduct{{Name: "Al pastor", Price: 25}}},
	}
	if _, err := storage.SeedMenu(ctx, store, menu); err != nil {
		t.Fatalf("seed: %v", err)
	}

	msgr := services.NewCaptureMessenger()
	engine, err := services.NewEngine(services.EngineConfig{
		Store:     store,
		Sessions:  services.NewSessionManager(15 * time.Minute),
		Messenger: msgr,
		Restaurant: config.Restaurant{
			Name:        "La Esquina",
			Phone:       "+5215550000000",
			DeliveryFee: 30,
			TimeZone:    "America/Mexico_City",
		},
		AdminPhone: admin,
		Now:        func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	wa := NewWhatsAppHandler(engine, dedup.NewMemoryDeduper(time.Hour))
	ah := NewAdminHandler(store, engine)

	app := fiber.New()
	app.Post("/webhook/whatsapp", wa.HandleWebhook)
	app.Post("/test/whatsapp", wa.HandleTestWebhook)
	app.Get("/admin/sessions", ah.ListSessions)
	app.Get("/admin/sessions/:phone", ah.GetSession)
	app.Delete("/admin/sessions/:phone", ah.ClearSession)
	app.Get("/admin/orders", ah.ListOrders)
	app.Get("/admin/orders/summary", ah.Summary)
	app.Get("/admin/orders/:id", ah.GetOrder)
	app.Patch("/admin/orders/:id/status", ah.UpdateOrderStatus)

	return &testEnv{app: app, store: store, engine: engine, msgr: msgr}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, body
}

func (e *testEnv) webhook(t *testing.T, form url.Values) (int, []byte) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) jsonRequest(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	code, raw := e.do(t, req)
	out := map[string]interface{}{}
	_ = json.Unmarshal(raw, &out)
	return code, out
}

func (e *testEnv) seedOrder(t *testing.T, phone string) *models.Order {
	t.Helper()
	o, err := e.store.CreateOrder(context.Background(), storage.NewOrder{
		CustomerID:   1,
		Phone:        phone,
		CustomerName: "Ana",
		Items:        []models.OrderItem{{ProductID: 1, ProductName: "Al pastor", Quantity: 2, UnitPrice: 25}},
		DeliveryType: models.DeliveryTypePickup,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}
