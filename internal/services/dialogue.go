package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/events"
	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// EngineConfig wires the conversation engine to its collaborators.
// Store, Sessions and Messenger are required.
type EngineConfig struct {
	Store      storage.Store
	Sessions   *SessionManager
	Messenger  Messenger
	Publisher  events.Publisher
	Metrics    *metrics.Metrics
	Restaurant config.Restaurant
	AdminPhone string
	Now        func() time.Time
}

// Engine runs the WhatsApp ordering conversation
type Engine struct {
	store      storage.Store
	sessions   *SessionManager
	messenger  Messenger
	publisher  events.Publisher
	metrics    *metrics.Metrics
	restaurant config.Restaurant
	adminPhone string
	loc        *time.Location
	now        func() time.Time

	checkout *Checkout
	admin    *AdminCommands

	steps          map[Step]stepHandler
	mainMenu       []intent
	browseProducts []intent
}

// turn is one inbound message being handled
type turn struct {
	phone     string
	text      string // trimmed original text
	input     string // normalized for keyword matching
	messageID string
	session   *Session
}

// NewEngine creates the conversation engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("engine: session manager is required")
	}
	if cfg.Messenger == nil {
		return nil, errors.New("engine: messenger is required")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		store:      cfg.Store,
		sessions:   cfg.Sessions,
		messenger:  cfg.Messenger,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		restaurant: cfg.Restaurant,
		adminPhone: cfg.AdminPhone,
		loc:        cfg.Restaurant.Location(),
		now:        cfg.Now,
	}
	e.build()
	return e, nil
}

// build creates the collaborators and step tables bound to e
func (e *Engine) build() {
	e.checkout = &Checkout{
		store:      e.store,
		sessions:   e.sessions,
		messenger:  e.messenger,
		publisher:  e.publisher,
		metrics:    e.metrics,
		restaurant: e.restaurant,
		loc:        e.loc,
	}
	e.admin = &AdminCommands{
		adminPhone:  e.adminPhone,
		adminDigits: PhoneDigits(e.adminPhone),
		store:       e.store,
		sessions:    e.sessions,
		messenger:   e.messenger,
		publisher:   e.publisher,
		metrics:     e.metrics,
		restaurant:  e.restaurant,
		loc:         e.loc,
		now:         e.now,
	}

	e.mainMenu = []intent{
		{name: "categories", match: wantsCategories, handle: e.showCategories},
		{name: "order", match: wantsOrder, handle: e.startOrder},
		{name: "contact", match: wantsContact, handle: e.showContact},
		{name: "help", match: wantsHelp, handle: e.showHelp},
	}
	e.browseProducts = []intent{
		{name: "order", match: wantsOrder, handle: e.startOrder},
		{name: "back", match: wantsBack, handle: e.showCategories},
	}

	e.steps = map[Step]stepHandler{
		StepInitial:            e.handleInitial,
		StepMainMenu:           e.handleMainMenu,
		StepBrowsingCategories: e.handleBrowsingCategories,
		StepBrowsingProducts:   e.handleBrowsingProducts,

		StepOrderStart:          e.handleProductSelection,
		StepOrderSelectProduct:  e.handleProductSelection,
		StepOrderSelectQuantity: e.handleQuantity,
		StepOrderMoreItems:      e.handleMoreItems,
		StepOrderName:           e.handleName,
		StepOrderDeliveryType:   e.handleDeliveryType,
		StepOrderAddress:        e.handleAddress,
		StepOrderNotes:          e.handleNotes,
		StepOrderConfirm:        e.handleConfirm,

		StepAdminMenu:                e.adminOnly(e.admin.handleMenu),
		StepAdminViewOrder:           e.adminOnly(e.admin.handleViewOrder),
		StepAdminConfirmStatusChange: e.adminOnly(e.admin.handleConfirmStatusChange),
	}
}

// WithMessenger returns a copy of the engine that sends through m. Sessions
// and storage are shared with the original.
func (e *Engine) WithMessenger(m Messenger) *Engine {
	cp := *e
	cp.messenger = m
	cp.build()
	return &cp
}

// Sessions exposes the session manager for introspection
func (e *Engine) Sessions() *SessionManager {
	return e.sessions
}

// Admin exposes the administrator operations shared with the HTTP API
func (e *Engine) Admin() *AdminCommands {
	return e.admin
}

// HandleIncomingMessage processes one inbound message. It never panics: any
// failure ends with an apology to the sender and a cleared session.
func (e *Engine) HandleIncomingMessage(ctx context.Context, sender, text, messageID string) {
	phone := NormalizeSender(sender)
	if phone == "" {
		log.Printf("⚠️ Ignoring message %s without sender", messageID)
		return
	}

	unlock := e.sessions.Lock(phone)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic handling message from %s: %v\n%s", phone, r, debug.Stack())
			e.fail(ctx, phone, fmt.Errorf("panic: %v", r))
		}
	}()

	if messageID != "" {
		if err := e.messenger.MarkRead(ctx, messageID); err != nil {
			log.Printf("Failed to mark %s as read: %v", messageID, err)
		}
	}

	if err := e.process(ctx, phone, strings.TrimSpace(text), messageID); err != nil {
		e.fail(ctx, phone, err)
	}
}

func (e *Engine) process(ctx context.Context, phone, text, messageID string) error {
	log.Printf("📱 Message from %s: %q", phone, text)

	if e.admin.IsAdmin(phone) {
		reply, handled, err := e.admin.Intercept(ctx, phone, text)
		if handled {
			if err != nil {
				return err
			}
			e.send(ctx, phone, reply)
			return nil
		}
	}

	session := e.sessions.Get(phone)
	e.sessions.Touch(phone)
	e.metrics.MessageReceived(string(session.Step))

	t := &turn{
		phone:     phone,
		text:      text,
		input:     normalizeInput(text),
		messageID: messageID,
		session:   session,
	}
	reply, err := e.dispatch(ctx, t)
	if err != nil {
		return err
	}
	e.send(ctx, phone, reply)
	return nil
}

func (e *Engine) dispatch(ctx context.Context, t *turn) (string, error) {
	switch {
	case isGreeting(t.input):
		return e.greet(ctx, t)
	case isCancel(t.input):
		e.sessions.Clear(t.phone)
		return cancelMessage(), nil
	case isAdminKeyword(t.input) && e.admin.IsAdmin(t.phone):
		return e.admin.openMenu(ctx, t)
	}

	h, ok := e.steps[t.session.Step]
	if !ok {
		h = e.handleInitial
	}
	return h(ctx, t)
}

// adminOnly guards the administrator steps. Anyone else holding such a step
// starts over as a fresh session.
func (e *Engine) adminOnly(h stepHandler) stepHandler {
	return func(ctx context.Context, t *turn) (string, error) {
		if !e.admin.IsAdmin(t.phone) {
			log.Printf("⚠️ %s reached admin step %s, resetting", t.phone, t.session.Step)
			e.sessions.Clear(t.phone)
			t.session = e.sessions.Get(t.phone)
			return e.handleInitial(ctx, t)
		}
		return h(ctx, t)
	}
}

func (e *Engine) send(ctx context.Context, to, body string) {
	if body == "" {
		return
	}
	if err := e.messenger.SendText(ctx, to, body); err != nil {
		log.Printf("❌ Failed to send reply to %s: %v", to, err)
	}
}

func (e *Engine) fail(ctx context.Context, phone string, err error) {
	log.Printf("❌ Error handling message from %s: %v", phone, err)
	e.metrics.HandlerError()
	e.sessions.Clear(phone)
	if sendErr := e.messenger.SendText(ctx, phone, apologyMessage()); sendErr != nil {
		log.Printf("❌ Failed to send apology to %s: %v", phone, sendErr)
	}
}
