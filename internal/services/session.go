package services

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Step is the position of a sender inside the conversation
type Step string

const (
	StepInitial            Step = "initial"
	StepMainMenu           Step = "main_menu"
	StepBrowsingCategories Step = "browsing_categories"
	StepBrowsingProducts   Step = "browsing_products"

	StepOrderStart          Step = "order_start"
	StepOrderSelectProduct  Step = "order_select_product"
	StepOrderSelectQuantity Step = "order_select_quantity"
	StepOrderMoreItems      Step = "order_more_items"
	StepOrderName           Step = "order_name"
	StepOrderDeliveryType   Step = "order_delivery_type"
	StepOrderAddress        Step = "order_address"
	StepOrderNotes          Step = "order_notes"
	StepOrderConfirm        Step = "order_confirm"

	StepAdminMenu                Step = "admin_menu"
	StepAdminViewOrder           Step = "admin_view_order"
	StepAdminConfirmStatusChange Step = "admin_confirm_status_change"
)

var knownSteps = map[Step]bool{
	StepInitial: true, StepMainMenu: true, StepBrowsingCategories: true, StepBrowsingProducts: true,
	StepOrderStart: true, StepOrderSelectProduct: true, StepOrderSelectQuantity: true,
	StepOrderMoreItems: true, StepOrderName: true, StepOrderDeliveryType: true,
	StepOrderAddress: true, StepOrderNotes: true, StepOrderConfirm: true,
	StepAdminMenu: true, StepAdminViewOrder: true, StepAdminConfirmStatusChange: true,
}

// Valid reports whether s is one of the defined steps
func (s Step) Valid() bool {
	return knownSteps[s]
}

// CategoryRef is a category as it was listed to the sender
type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// ProductRef is a product as it was listed to the sender. Price is the unit
// price captured when the list was shown.
type ProductRef struct {
	ID         uint    `json:"id"`
	CategoryID uint    `json:"category_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

// SessionData is everything a conversation accumulates between messages
type SessionData struct {
	Categories []CategoryRef `json:"categories,omitempty"`
	Products   []ProductRef  `json:"products,omitempty"`

	// pending multi-selection and the position of the quantity prompt
	Selected      []ProductRef `json:"selected,omitempty"`
	SelectedIndex int          `json:"selected_index"`

	Cart         []CartItem `json:"cart,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
	DeliveryType string     `json:"delivery_type,omitempty"`
	DeliveryFee  float64    `json:"delivery_fee"`
	Address      string     `json:"address,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	AdminOrderID   uint   `json:"admin_order_id,omitempty"`
	AdminNewStatus string `json:"admin_new_status,omitempty"`
}

func (d SessionData) clone() SessionData {
	c := d
	c.Categories = append([]CategoryRef(nil), d.Categories...)
	c.Products = append([]ProductRef(nil), d.Products...)
	c.Selected = append([]ProductRef(nil), d.Selected...)
	c.Cart = append([]CartItem(nil), d.Cart...)
	return c
}

// Session is the conversation state of one sender
type Session struct {
	Phone        string      `json:"phone"`
	Step         Step        `json:"step"`
	Data         SessionData `json:"data"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Data = s.Data.clone()
	return &c
}

// SessionManager keeps conversation sessions in memory. Sessions idle for
// longer than the TTL are treated as absent.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

// DefaultSessionTTL is the idle time after which a conversation starts over
const DefaultSessionTTL = 15 * time.Minute

// NewSessionManager creates a session manager with the given idle TTL
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		locks:    make(map[string]*senderLock),
	}
}

// SetClock replaces the time source. Used by tests.
func (sm *SessionManager) SetClock(now func() time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.now = now
}

// TTL returns the idle timeout
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActivity) >= sm.ttl
}

func (sm *SessionManager) fresh(phone string, now time.Time) *Session {
	return &Session{Phone: phone, Step: StepInitial, CreatedAt: now, LastActivity: now}
}

// Get returns a copy of the session for phone, creating one at the initial
// step when none exists or the stored one has expired.
func (sm *SessionManager) Get(phone string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	s, ok := sm.sessions[phone]
	if !ok || sm.expired(s, now) {
		if ok {
			log.Printf("⌛ Session expired for %s (step %s)", phone, s.Step)
		}
		s = sm.fresh(phone, now)
		sm.sessions[phone] = s
	}
	return s.clone()
}

// Peek returns a copy of the live session without creating one
func (sm *SessionManager) Peek(phone string) (*Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[phone]
	if !ok || sm.expired(s, sm.now()) {
		return nil, false
	}
	return s.clone(), true
}

// Update applies mutate to the stored session and refreshes its activity
// time. A step outside the known set is replaced by the initial step.
func (sm *SessionManager) Update(phone string, mutate func(*Session)) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	s, ok := sm.sessions[phone]
	if !ok || sm.expired(s, now) {
		s = sm.fresh(phone, now)
	}

	next := s.clone()
	if mutate != nil {
		mutate(next)
	}
	next.Phone = phone
	next.CreatedAt = s.CreatedAt
	if !next.Step.Valid() {
		log.Printf("⚠️ Unknown step %q for %s, resetting", next.Step, phone)
		next.Step = StepInitial
	}
	next.LastActivity = now

	sm.sessions[phone] = next
	return next.clone()
}

// Touch refreshes the activity time without changing state
func (sm *SessionManager) Touch(phone string) {
	sm.Update(phone, nil)
}

// Clear removes the session for phone
func (sm *SessionManager) Clear(phone string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, phone)
}

// Sweep removes expired sessions and returns how many were dropped
func (sm *SessionManager) Sweep() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for phone, s := range sm.sessions {
		if sm.expired(s, now) {
			delete(sm.sessions, phone)
			removed++
		}
	}
	return removed
}

// Lock serializes message handling for one sender. The returned func
// releases the lock.
func (sm *SessionManager) Lock(phone string) func() {
	sm.locksMu.Lock()
	l, ok := sm.locks[phone]
	if !ok {
		l = &senderLock{}
		sm.locks[phone] = l
	}
	l.refs++
	sm.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		sm.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sm.locks, phone)
		}
		sm.locksMu.Unlock()
	}
}

// ActiveSessions returns copies of all live sessions ordered by phone
func (sm *SessionManager) ActiveSessions() []*Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	active := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		if !sm.expired(s, now) {
			active = append(active, s.clone())
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Phone < active[j].Phone })
	return active
}

// SessionStats provides session statistics
type SessionStats struct {
	ActiveSessions  int            `json:"active_sessions"`
	SessionsByStep  map[string]int `json:"sessions_by_step"`
	AverageDuration float64        `json:"average_duration_minutes"`
}

// Stats returns counts over the live sessions
func (sm *SessionManager) Stats() *SessionStats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	stats := &SessionStats{SessionsByStep: make(map[string]int)}
	total := 0.0
	for _, s := range sm.sessions {
		if sm.expired(s, now) {
			continue
		}
		stats.ActiveSessions++
		stats.SessionsByStep[string(s.Step)]++
		total += now.Sub(s.CreatedAt).Minutes()
	}
	if stats.ActiveSessions > 0 {
		stats.AverageDuration = total / float64(stats.ActiveSessions)
	}
	return stats
}
