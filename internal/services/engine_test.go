package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/events"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

const (
	customerPhone   = "5551234567"
	adminPhone      = "+5215559990000"
	restaurantPhone = "+5215550000000"
)

var testRestaurant = config.Restaurant{
	Name:          "La Esquina",
	Phone:         restaurantPhone,
	PickupAddress: "Av. Juárez 10, Centro",
	Hours:         "Mon-Sun 12:00-22:00",
	DeliveryFee:   30,
	TimeZone:      "America/Mexico_City",
}

// Product list order in the memory store: category, then name.
//
//  1. Al pastor 25   2. Gringa 45   3. Suadero 28   4. Agua 20   5. Refresco 25
var testMenu = []config.MenuCategory{
	{Name: "Tacos", Products: []config.MenuProduct{
		{Name: "Al pastor", Price: 25},
		{Name: "Suadero", Price: 28},
		{Name: "Gringa", Price: 45},
	}},
	{Name: "Bebidas", Products: []config.MenuProduct{
		{Name: "Agua", Price: 20},
		{Name: "Refresco", Price: 25},
	}},
}

type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.envs {
		out = append(out, e.EventType)
	}
	return out
}

// stubStore wraps a real store and injects failures
type stubStore struct {
	storage.Store
	upsertErr        error
	createErr        error
	listErr          error
	panicOnMenu      bool
	createCalls      int
	updateStatusCall int
}

func (s *stubStore) UpsertCustomerByPhone(ctx context.Context, phone, name string) (*models.Customer, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	return s.Store.UpsertCustomerByPhone(ctx, phone, name)
}

func (s *stubStore) CreateOrder(ctx context.Context, in storage.NewOrder) (*models.Order, error) {
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.Store.CreateOrder(ctx, in)
}

func (s *stubStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	if s.panicOnMenu {
		panic("menu exploded")
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListCategories(ctx)
}

func (s *stubStore) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	s.updateStatusCall++
	return s.Store.UpdateOrderStatus(ctx, id, status)
}

// failingMessenger fails every text sent to the listed recipients
type failingMessenger struct {
	*CaptureMessenger
	failTo map[string]bool
}

func (f *failingMessenger) SendText(ctx context.Context, to, body string) error {
	if f.failTo[to] {
		return errors.New("transport down")
	}
	return f.CaptureMessenger.SendText(ctx, to, body)
}

type harness struct {
	t      *testing.T
	engine *Engine
	store  *storage.MemoryStore
	msgr   *CaptureMessenger
	pub    *recordingPublisher
	clock  *fakeClock
	seq    int
}

func newHarness(t *testing.T, opts ...func(*EngineConfig)) *harness {
	t.Helper()

	clock := newFakeClock()
	store := storage.NewMemoryStore()
	store.SetClock(clock.Now)
	if _, err := storage.SeedMenu(context.Background(), store, testMenu); err != nil {
		t.Fatalf("seed menu: %v", err)
	}

	sessions := NewSessionManager(15 * time.Minute)
	sessions.SetClock(clock.Now)

	msgr := NewCaptureMessenger()
	pub := &recordingPublisher{}
	cfg := EngineConfig{
		Store:      store,
		Sessions:   sessions,
		Messenger:  msgr,
		Publisher:  pub,
		Restaurant: testRestaurant,
		AdminPhone: "+52 1 555 999 0000",
		Now:        clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return &harness{t: t, engine: engine, store: store, msgr: msgr, pub: pub, clock: clock}
}

func (h *harness) send(phone, text string) {
	h.seq++
	h.engine.HandleIncomingMessage(context.Background(), "whatsapp:"+phone, text, fmt.Sprintf("SM%03d", h.seq))
}

func (h *harness) lastReply(phone string) string {
	texts := h.msgr.Texts(phone)
	if len(texts) == 0 {
		h.t.Fatalf("no reply sent to %s", phone)
	}
	return texts[len(texts)-1]
}

func (h *harness) session(phone string) (*Session, bool) {
	return h.engine.Sessions().Peek(phone)
}

func (h *harness) step(phone string) Step {
	s, ok := h.session(phone)
	if !ok {
		return ""
	}
	return s.Step
}

func (h *harness) expectStep(phone string, want Step) {
	h.t.Helper()
	if got := h.step(phone); got != want {
		h.t.Fatalf("step = %q, want %q (last reply: %q)", got, want, h.msgr.Texts(phone))
	}
}

func (h *harness) expectReplyContains(phone, want string) {
	h.t.Helper()
	if got := h.lastReply(phone); !strings.Contains(got, want) {
		h.t.Fatalf("reply %q does not contain %q", got, want)
	}
}

func (h *harness) orders() []*models.Order {
	orders, err := h.store.ListOrders(context.Background(), storage.OrderFilter{})
	if err != nil {
		h.t.Fatalf("list orders: %v", err)
	}
	return orders
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(EngineConfig{}); err == nil {
		t.Error("expected error without store")
	}
	if _, err := NewEngine(EngineConfig{Store: storage.NewMemoryStore()}); err == nil {
		t.Error("expected error without sessions")
	}
	if _, err := NewEngine(EngineConfig{Store: storage.NewMemoryStore(), Sessions: NewSessionManager(0)}); err == nil {
		t.Error("expected error without messenger")
	}
}

func TestScenarioA_MultiSelectOrder(t *testing.T) {
	h := newHarness(t)

	h.send(customerPhone, "hola")
	h.expectStep(customerPhone, StepMainMenu)
	h.expectReplyContains(customerPhone, "Welcome to *La Esquina*")

	h.send(customerPhone, "2")
	h.expectStep(customerPhone, StepOrderStart)
	s, _ := h.session(customerPhone)
	if len(s.Data.Products) != 5 {
		t.Fatalf("cached products = %d, want 5", len(s.Data.Products))
	}

	h.send(customerPhone, "1,3")
	h.expectStep(customerPhone, StepOrderSelectQuantity)
	h.expectReplyContains(customerPhone, "Al pastor")

	h.send(customerPhone, "2")
	s, _ = h.session(customerPhone)
	if len(s.Data.Cart) != 1 || s.Data.Cart[0].Quantity != 2 {
		t.Fatalf("cart after first quantity = %+v", s.Data.Cart)
	}
	h.expectStep(customerPhone, StepOrderSelectQuantity)
	h.expectReplyContains(customerPhone, "Suadero")

	h.send(customerPhone, "1")
	s, _ = h.session(customerPhone)
	if len(s.Data.Cart) != 2 {
		t.Fatalf("cart = %+v, want 2 entries", s.Data.Cart)
	}
	if got := cartSubtotal(s.Data.Cart); got != 78 {
		t.Errorf("cart subtotal = %v, want 78", got)
	}
	h.expectStep(customerPhone, StepOrderMoreItems)
	h.expectReplyContains(customerPhone, "add more")

	h.send(customerPhone, "no")
	h.expectStep(customerPhone, StepOrderName)
}

func TestScenarioB_InvalidSelectionRejected(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.engine.Sessions().Update(customerPhone, func(s *Session) { s.Step = StepOrderSelectProduct })

	h.send(customerPhone, "1,9")

	h.expectStep(customerPhone, StepOrderSelectProduct)
	h.expectReplyContains(customerPhone, `"9"`)
	s, _ := h.session(customerPhone)
	if len(s.Data.Cart) != 0 || len(s.Data.Selected) != 0 {
		t.Errorf("selection leaked into session: %+v", s.Data)
	}
}

func TestEmptySelectionTokenRejected(t *testing.T) {
	for _, input := range []string{"1,,3", "1,", ",2"} {
		t.Run(input, func(t *testing.T) {
			h := newHarness(t)
			h.send(customerPhone, "hola")
			h.send(customerPhone, "2")
			h.engine.Sessions().Update(customerPhone, func(s *Session) { s.Step = StepOrderSelectProduct })

			h.send(customerPhone, input)

			h.expectStep(customerPhone, StepOrderSelectProduct)
			h.expectReplyContains(customerPhone, `"(empty)"`)
			s, _ := h.session(customerPhone)
			if len(s.Data.Selected) != 0 {
				t.Errorf("selection = %+v, want none", s.Data.Selected)
			}
		})
	}
}

func TestScenarioC_StatusCommandOrderNotFound(t *testing.T) {
	h := newHarness(t)
	h.send(adminPhone, "hola")

	h.send(adminPhone, "estado 42 completado")

	h.expectReplyContains(adminPhone, "#42 not found")
	h.expectStep(adminPhone, StepMainMenu)
	if len(h.pub.types()) != 0 {
		t.Errorf("no events expected, got %v", h.pub.types())
	}
}

func TestScenarioD_ExpiredSessionStartsFresh(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.engine.Sessions().Update(customerPhone, func(s *Session) {
		s.Step = StepOrderSelectProduct
		s.Data.Cart = []CartItem{{ProductID: 1, Name: "Al pastor", UnitPrice: 25, Quantity: 1}}
	})

	h.clock.Advance(20 * time.Minute)
	h.send(customerPhone, "3")

	h.expectReplyContains(customerPhone, "Contact")
	h.expectStep(customerPhone, StepMainMenu)
	s, _ := h.session(customerPhone)
	if len(s.Data.Cart) != 0 || len(s.Data.Products) != 0 {
		t.Errorf("expired data survived: %+v", s.Data)
	}
}

func TestInitial_UnmatchedTextGetsWelcome(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "quiero tacos por favor")
	h.expectReplyContains(customerPhone, "Welcome")
	h.expectStep(customerPhone, StepMainMenu)
}

func TestMainMenu_Intents(t *testing.T) {
	tests := []struct {
		input string
		step  Step
		reply string
	}{
		{"1", StepBrowsingCategories, "Our menu"},
		{"Ver el menú", StepBrowsingCategories, "Our menu"},
		{"2", StepOrderStart, "What would you like to order"},
		{"quiero hacer un pedido", StepOrderStart, "What would you like to order"},
		{"3", StepMainMenu, "Contact"},
		{"horario?", StepMainMenu, "Hours: Mon-Sun"},
		{"4", StepMainMenu, "How to order"},
		{"AYUDA", StepMainMenu, "How to order"},
		{"xyz", StepMainMenu, "didn't get that"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			h := newHarness(t)
			h.send(customerPhone, "hola")
			h.send(customerPhone, tt.input)
			h.expectStep(customerPhone, tt.step)
			h.expectReplyContains(customerPhone, tt.reply)
		})
	}
}

func TestGreetingResetsData(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")
	h.send(customerPhone, "3")
	h.expectStep(customerPhone, StepOrderMoreItems)

	h.send(customerPhone, "HELLO")

	h.expectStep(customerPhone, StepMainMenu)
	s, _ := h.session(customerPhone)
	if len(s.Data.Cart) != 0 {
		t.Errorf("cart should be reset, got %+v", s.Data.Cart)
	}
}

func TestCancelClearsSession(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")

	h.send(customerPhone, "Cancelar")

	h.expectReplyContains(customerPhone, "canceled")
	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared")
	}
}

func TestBrowsing(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "1")
	h.expectStep(customerPhone, StepBrowsingCategories)
	h.expectReplyContains(customerPhone, "2. Bebidas")

	h.send(customerPhone, "9")
	h.expectStep(customerPhone, StepBrowsingCategories)
	h.expectReplyContains(customerPhone, "between 1 and 2")

	h.send(customerPhone, "2")
	h.expectStep(customerPhone, StepBrowsingProducts)
	reply := h.lastReply(customerPhone)
	if !strings.Contains(reply, "Agua") || strings.Contains(reply, "Gringa") {
		t.Errorf("category listing wrong: %q", reply)
	}

	h.send(customerPhone, "volver")
	h.expectStep(customerPhone, StepBrowsingCategories)

	h.send(customerPhone, "all")
	h.expectStep(customerPhone, StepBrowsingProducts)
	reply = h.lastReply(customerPhone)
	for _, name := range []string{"*Tacos*", "*Bebidas*", "Gringa", "Refresco"} {
		if !strings.Contains(reply, name) {
			t.Errorf("full menu missing %s: %q", name, reply)
		}
	}

	h.send(customerPhone, "what?")
	h.expectStep(customerPhone, StepBrowsingProducts)

	h.send(customerPhone, "pedir")
	h.expectStep(customerPhone, StepOrderStart)
}

func TestUnavailableProductsAreHidden(t *testing.T) {
	h := newHarness(t)
	if err := h.store.AddProduct(context.Background(), &models.Product{CategoryID: 1, Name: "Birria", Price: 60, Available: false}); err != nil {
		t.Fatalf("add product: %v", err)
	}
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	if strings.Contains(h.lastReply(customerPhone), "Birria") {
		t.Error("unavailable product listed")
	}
}

func TestQuantityValidation(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "2")

	for _, bad := range []string{"0", "-1", "abc", "1.5", "100"} {
		h.send(customerPhone, bad)
		h.expectStep(customerPhone, StepOrderSelectQuantity)
		h.expectReplyContains(customerPhone, "whole number")
	}
	s, _ := h.session(customerPhone)
	if len(s.Data.Cart) != 0 {
		t.Fatalf("cart should be empty, got %+v", s.Data.Cart)
	}

	h.send(customerPhone, "99")
	h.expectStep(customerPhone, StepOrderMoreItems)
}

func TestCartTotalInvariant(t *testing.T) {
	multi := newHarness(t)
	multi.send(customerPhone, "hola")
	multi.send(customerPhone, "2")
	multi.send(customerPhone, "1,2,4")
	multi.send(customerPhone, "3")
	multi.send(customerPhone, "1")
	multi.send(customerPhone, "2")

	single := newHarness(t)
	single.send(customerPhone, "hola")
	single.send(customerPhone, "2")
	for _, pick := range [][2]string{{"1", "3"}, {"2", "1"}, {"4", "2"}} {
		single.send(customerPhone, pick[0])
		single.send(customerPhone, pick[1])
		single.expectStep(customerPhone, StepOrderMoreItems)
		single.send(customerPhone, "si")
	}
	single.expectStep(customerPhone, StepOrderStart)

	m, _ := multi.session(customerPhone)
	s, _ := single.session(customerPhone)
	if len(m.Data.Cart) != 3 || len(s.Data.Cart) != 3 {
		t.Fatalf("cart sizes = %d / %d, want 3", len(m.Data.Cart), len(s.Data.Cart))
	}
	want := 3*25.0 + 45 + 2*20
	if got := cartSubtotal(m.Data.Cart); got != want {
		t.Errorf("multi-select total = %v, want %v", got, want)
	}
	if got := cartSubtotal(s.Data.Cart); got != want {
		t.Errorf("one-at-a-time total = %v, want %v", got, want)
	}
}

func TestMoreItemsFallback(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")
	h.send(customerPhone, "1")

	h.send(customerPhone, "tal vez")
	h.expectStep(customerPhone, StepOrderMoreItems)
	h.expectReplyContains(customerPhone, "yes")
}

func TestNameAndAddressValidation(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")
	h.send(customerPhone, "1")
	h.send(customerPhone, "no")

	h.send(customerPhone, " A ")
	h.expectStep(customerPhone, StepOrderName)
	h.send(customerPhone, "Ana")
	h.expectStep(customerPhone, StepOrderDeliveryType)

	h.send(customerPhone, "3")
	h.expectStep(customerPhone, StepOrderDeliveryType)
	h.send(customerPhone, "a domicilio")
	h.expectStep(customerPhone, StepOrderAddress)

	h.send(customerPhone, "Calle 5")
	h.expectStep(customerPhone, StepOrderAddress)
	h.send(customerPhone, "Calle 5 #12, Roma")
	h.expectStep(customerPhone, StepOrderNotes)

	s, _ := h.session(customerPhone)
	if s.Data.CustomerName != "Ana" || s.Data.Address != "Calle 5 #12, Roma" || s.Data.DeliveryFee != 30 {
		t.Errorf("unexpected data: %+v", s.Data)
	}
}

func placeDeliveryOrder(h *harness, notes string) {
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1,3")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")
	h.send(customerPhone, "no")
	h.send(customerPhone, "Ana López")
	h.send(customerPhone, "2")
	h.send(customerPhone, "Calle Roble 123, Col. Centro")
	h.send(customerPhone, notes)
}

func TestCheckout_Delivery(t *testing.T) {
	h := newHarness(t)
	placeDeliveryOrder(h, "Sin cebolla")
	h.expectStep(customerPhone, StepOrderConfirm)
	h.expectReplyContains(customerPhone, "Total: $108.00")

	h.send(customerPhone, "sí")

	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared after checkout")
	}
	orders := h.orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	o := orders[0]
	if o.Status != models.OrderStatusPending || o.DeliveryType != models.DeliveryTypeDelivery {
		t.Errorf("unexpected order: %+v", o)
	}
	if o.Subtotal != 78 || o.DeliveryFee != 30 || o.Total != 108 {
		t.Errorf("totals = %v + %v = %v", o.Subtotal, o.DeliveryFee, o.Total)
	}
	if len(o.Items) != 2 || o.Items[0].Subtotal != 50 || o.Items[1].UnitPrice != 28 {
		t.Errorf("items = %+v", o.Items)
	}
	if o.Notes != "Sin cebolla" || o.DeliveryAddress != "Calle Roble 123, Col. Centro" || o.CustomerName != "Ana López" {
		t.Errorf("details = %+v", o)
	}

	h.expectReplyContains(customerPhone, fmt.Sprintf("Order #%d confirmed", o.ID))

	notif := h.msgr.Texts(restaurantPhone)
	if len(notif) != 1 {
		t.Fatalf("restaurant notifications = %d, want 1", len(notif))
	}
	for _, want := range []string{"New order #1", "Ana López", "2 x Al pastor", "Delivery fee: $30.00", "Calle Roble", "01/05/2024 06:00"} {
		if !strings.Contains(notif[0], want) {
			t.Errorf("notification missing %q:\n%s", want, notif[0])
		}
	}

	var reactions int
	for _, m := range h.msgr.Messages() {
		if m.Kind == "reaction" && m.To == customerPhone && m.Body == "✅" {
			reactions++
		}
	}
	if reactions != 1 {
		t.Errorf("reactions = %d, want 1", reactions)
	}
	if got := h.pub.types(); len(got) != 1 || got[0] != events.EventOrderCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCheckout_PickupHasNoFee(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")
	h.send(customerPhone, "no")
	h.send(customerPhone, "Luis")
	h.send(customerPhone, "recoger")
	h.expectStep(customerPhone, StepOrderNotes)
	h.send(customerPhone, "NO")
	h.send(customerPhone, "yes")

	orders := h.orders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d", len(orders))
	}
	o := orders[0]
	if o.DeliveryType != models.DeliveryTypePickup || o.DeliveryFee != 0 || o.Total != 45 || o.Notes != "" {
		t.Errorf("unexpected pickup order: %+v", o)
	}
	h.expectReplyContains(customerPhone, "Pickup at: Av. Juárez 10")
}

func TestCheckout_NegativeConfirmationCancels(t *testing.T) {
	h := newHarness(t)
	placeDeliveryOrder(h, "no")

	h.send(customerPhone, "mejor no")

	h.expectReplyContains(customerPhone, "Order canceled")
	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared")
	}
	if len(h.orders()) != 0 {
		t.Error("no order should be created")
	}
}

func TestCheckout_CreateOrderFailure(t *testing.T) {
	var stub *stubStore
	h := newHarness(t, func(cfg *EngineConfig) {
		stub = &stubStore{Store: cfg.Store, createErr: errors.New("db down")}
		cfg.Store = stub
	})
	placeDeliveryOrder(h, "no")

	h.send(customerPhone, "si")

	h.expectReplyContains(customerPhone, "something went wrong")
	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared after a failure")
	}
	if len(h.msgr.Texts(restaurantPhone)) != 0 {
		t.Error("restaurant must not be notified")
	}
	for _, txt := range h.msgr.Texts(customerPhone) {
		if strings.Contains(txt, "confirmed") {
			t.Errorf("customer got a confirmation: %q", txt)
		}
	}
	if len(h.pub.types()) != 0 {
		t.Errorf("events = %v, want none", h.pub.types())
	}
}

func TestCheckout_CustomerFailureSkipsOrder(t *testing.T) {
	var stub *stubStore
	h := newHarness(t, func(cfg *EngineConfig) {
		stub = &stubStore{Store: cfg.Store, upsertErr: errors.New("constraint")}
		cfg.Store = stub
	})
	placeDeliveryOrder(h, "no")

	h.send(customerPhone, "si")

	if stub.createCalls != 0 {
		t.Errorf("CreateOrder called %d times", stub.createCalls)
	}
	h.expectReplyContains(customerPhone, "something went wrong")
}

func TestCheckout_NotificationFailureKeepsOrder(t *testing.T) {
	capture := NewCaptureMessenger()
	h := newHarness(t, func(cfg *EngineConfig) {
		cfg.Messenger = &failingMessenger{CaptureMessenger: capture, failTo: map[string]bool{restaurantPhone: true}}
	})
	h.msgr = capture
	placeDeliveryOrder(h, "no")

	h.send(customerPhone, "si")

	if len(h.orders()) != 1 {
		t.Fatal("order should be committed")
	}
	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared")
	}
	h.expectReplyContains(customerPhone, "confirmed")
}

func TestCheckout_ReturningCustomerIsRenamed(t *testing.T) {
	h := newHarness(t)
	if _, err := h.store.UpsertCustomerByPhone(context.Background(), customerPhone, "Old Name"); err != nil {
		t.Fatal(err)
	}
	placeDeliveryOrder(h, "no")
	h.send(customerPhone, "si")

	c, err := h.store.UpsertCustomerByPhone(context.Background(), customerPhone, "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Ana López" {
		t.Errorf("customer name = %q", c.Name)
	}
	if h.orders()[0].CustomerID != c.ID {
		t.Error("order should reference the existing customer")
	}
}

func TestFinalize_EmptyCart(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.checkout.Finalize(context.Background(), customerPhone, "", SessionData{CustomerName: "Ana"})
	if !errors.Is(err, storage.ErrEmptyOrder) {
		t.Errorf("err = %v, want ErrEmptyOrder", err)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t, func(cfg *EngineConfig) {
		cfg.Store = &stubStore{Store: cfg.Store, panicOnMenu: true}
	})
	h.send(customerPhone, "hola")

	h.send(customerPhone, "1")

	h.expectReplyContains(customerPhone, "something went wrong")
	if _, ok := h.session(customerPhone); ok {
		t.Error("session should be cleared after a panic")
	}
}

func TestRepositoryErrorApologizes(t *testing.T) {
	h := newHarness(t, func(cfg *EngineConfig) {
		cfg.Store = &stubStore{Store: cfg.Store, listErr: errors.New("timeout")}
	})
	h.send(customerPhone, "hola")
	h.send(customerPhone, "menu")
	h.expectReplyContains(customerPhone, "something went wrong")
}

func TestWithMessenger_SharesSessions(t *testing.T) {
	h := newHarness(t)
	capture := NewCaptureMessenger()
	other := h.engine.WithMessenger(capture)

	other.HandleIncomingMessage(context.Background(), customerPhone, "hola", "")

	if len(capture.Texts(customerPhone)) != 1 {
		t.Error("copy should send through its own messenger")
	}
	if len(h.msgr.Texts(customerPhone)) != 0 {
		t.Error("original messenger should stay untouched")
	}
	h.expectStep(customerPhone, StepMainMenu)
}

func TestConcurrentMessagesFromOneSender(t *testing.T) {
	h := newHarness(t)
	h.send(customerPhone, "hola")
	h.send(customerPhone, "2")
	h.send(customerPhone, "1")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.HandleIncomingMessage(context.Background(), customerPhone, "1", "")
		}()
	}
	wg.Wait()

	// the first "1" is a quantity, the second an affirmative "add more"
	h.expectStep(customerPhone, StepOrderStart)
	s, _ := h.session(customerPhone)
	if len(s.Data.Cart) != 1 {
		t.Errorf("cart = %+v, want exactly one line", s.Data.Cart)
	}
}
