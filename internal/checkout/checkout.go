// Package checkout hosts the per-visitor checkout session: the
// four-step wizard, the working order draft, the debounced customer
// and ETA resolvers, the payment orchestrator and the final order
// submission. All external effects go through the interfaces declared
// here, so the whole flow is testable with stubs.
package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"pizzaria-checkout/internal/backend"
	"pizzaria-checkout/internal/deliveryfee"
	"pizzaria-checkout/internal/domain"
	"pizzaria-checkout/internal/geo"
	"pizzaria-checkout/internal/kv"
)

// Step is the wizard position. Forward transitions are guarded,
// backward transitions are free.
type Step int

const (
	StepCart Step = iota
	StepCustomerData
	StepReview
	StepPayment
)

// Backend is the slice of the order-management API the session uses.
type Backend interface {
	LookupCustomerByPhone(ctx context.Context, phoneDigits string) (*domain.CustomerProfile, error)
	CreateCustomer(ctx context.Context, in backend.CreateCustomerInput) (*domain.CustomerProfile, error)
	SubmitOrder(ctx context.Context, payload map[string]interface{}) (*backend.OrderResult, error)
	CreatePixPayment(ctx context.Context, in backend.PaymentInput, idempotencyKey string) (*domain.Payment, error)
	CreateCardPayment(ctx context.Context, in backend.PaymentInput, idempotencyKey string) (*domain.Payment, error)
}

// RouteProvider resolves distance and duration to a destination.
type RouteProvider interface {
	Distance(ctx context.Context, origin, destination string) (*domain.DeliveryEta, error)
}

// CEPProvider resolves a postal code into an address.
type CEPProvider interface {
	Lookup(ctx context.Context, cep string) (*geo.Address, error)
}

// SessionStore caches generated payments per method.
type SessionStore interface {
	Load(ctx context.Context, method domain.PaymentMethod, expectedTotalCents int64) (*domain.Payment, error)
	Save(ctx context.Context, method domain.PaymentMethod, totalCents int64, payment domain.Payment) error
	Clear(ctx context.Context, method domain.PaymentMethod) error
}

// CouponRule decides the discount for a promo code. The default rule
// is a single hardcoded code; a backend coupon service can replace it.
type CouponRule interface {
	DiscountCents(code string) int64
}

// FixedCoupon grants a fixed discount for one case-insensitive code.
type FixedCoupon struct {
	Code  string
	Cents int64
}

// DiscountCents implements CouponRule.
func (f FixedCoupon) DiscountCents(code string) int64 {
	if strings.EqualFold(strings.TrimSpace(code), f.Code) {
		return f.Cents
	}
	return 0
}

// Config tunes a session. Zero values fall back to defaults.
type Config struct {
	StoreOrigin     string
	PhoneDebounce   time.Duration
	AddressDebounce time.Duration
	Coupon          CouponRule
}

const (
	defaultPhoneDebounce   = 800 * time.Millisecond
	defaultAddressDebounce = 500 * time.Millisecond
	defaultCouponCode      = "primeira"
	defaultCouponCents     = 500
)

func (c Config) withDefaults() Config {
	if c.PhoneDebounce == 0 {
		c.PhoneDebounce = defaultPhoneDebounce
	}
	if c.AddressDebounce == 0 {
		c.AddressDebounce = defaultAddressDebounce
	}
	if c.Coupon == nil {
		c.Coupon = FixedCoupon{Code: defaultCouponCode, Cents: defaultCouponCents}
	}
	return c
}

// Deps are the external collaborators of one session.
type Deps struct {
	Backend  Backend
	Routes   RouteProvider
	CEP      CEPProvider
	Sessions SessionStore
	KV       kv.Store
	Logger   *log.Logger
}

// Checkout is one visitor's checkout session. All exported methods are
// safe for concurrent use; timer callbacks commit results only if
// their generation is still current.
type Checkout struct {
	mu   sync.Mutex
	id   string
	deps Deps
	cfg  Config

	step  Step
	cart  domain.Cart
	draft domain.OrderDraft

	couponInput string

	eta        *domain.DeliveryEta
	etaErr     string
	etaPending bool
	etaGen     int
	etaTimer   *time.Timer

	lookupGen      int
	lookupTimer    *time.Timer
	lookupInFlight bool
	lastLookup     string
	lookupMsg      string

	lastCEPLookup string

	payments map[domain.PaymentMethod]*paymentState
	method   domain.PaymentMethod

	closed bool
}

// New builds a session. A previously cached draft for the same id is
// restored from the kv store when present.
func New(id string, deps Deps, cfg Config) *Checkout {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	c := &Checkout{
		id:       id,
		deps:     deps,
		cfg:      cfg.withDefaults(),
		method:   domain.PaymentPix,
		payments: make(map[domain.PaymentMethod]*paymentState),
	}
	c.restoreDraft()
	return c
}

// ID returns the session id.
func (c *Checkout) ID() string { return c.id }

// Close cancels pending timers and marks outstanding async results as
// ignorable. It is idempotent.
func (c *Checkout) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.lookupGen++
	c.etaGen++
	if c.lookupTimer != nil {
		c.lookupTimer.Stop()
	}
	if c.etaTimer != nil {
		c.etaTimer.Stop()
	}
}

// ---- wizard ----

// Advance moves forward one step when the current step's guard allows
// it, and reports the resulting step.
func (c *Checkout) Advance() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.advanceAllowed() {
		return c.step
	}
	if c.step < StepPayment {
		c.step++
	}
	if c.step == StepPayment {
		c.autoGenerate()
	}
	return c.step
}

// Back moves one step backwards, floored at the cart.
func (c *Checkout) Back() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step > StepCart {
		c.step--
	}
	return c.step
}

// GoTo jumps to a step directly, used for corrections. Jumping past
// the cart is refused while the cart is empty.
func (c *Checkout) GoTo(step Step) Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if step < StepCart || step > StepPayment {
		return c.step
	}
	if step > StepCart && c.cart.Empty() {
		return c.step
	}
	c.step = step
	return c.step
}

// Step returns the current wizard position.
func (c *Checkout) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// advanceAllowed is the transition table: one guard per step.
// Callers hold the lock.
func (c *Checkout) advanceAllowed() bool {
	switch c.step {
	case StepCart:
		return !c.cart.Empty()
	case StepCustomerData:
		return c.customerDataComplete()
	case StepReview:
		return true
	default:
		return false
	}
}

// customerDataComplete is the step-1 guard. Callers hold the lock.
func (c *Checkout) customerDataComplete() bool {
	if strings.TrimSpace(c.draft.CustomerName) == "" {
		return false
	}
	if len(c.draft.PhoneDigits) < 10 {
		return false
	}
	if c.draft.CustomerType == domain.CustomerTypeUndeclared {
		return false
	}
	if c.draft.Pickup {
		return true
	}
	if strings.TrimSpace(c.draft.Street) == "" || strings.TrimSpace(c.draft.Neighborhood) == "" {
		return false
	}
	if len(c.draft.CEP) != 8 {
		return false
	}
	// A pending route lookup means the fee is not settled yet. A
	// failed lookup is fine: the neighborhood fee takes over.
	return !c.etaPending
}

// FieldsUnlocked reports whether address and personal fields are
// exposed: the customer-type choice is made and the phone is dialable.
func (c *Checkout) FieldsUnlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.draft.PhoneDigits) >= 10 && c.draft.CustomerType != domain.CustomerTypeUndeclared
}

// ---- cart ----

// AddItem puts an item into the cart, merging on (id, size).
func (c *Checkout) AddItem(item domain.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Upsert(item)
	c.onTotalChanged()
}

// SetQuantity changes a line quantity; zero removes the line.
func (c *Checkout) SetQuantity(id, size string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.SetQuantity(id, size, quantity)
	c.onTotalChanged()
}

// Cart returns a copy of the cart lines.
func (c *Checkout) Cart() domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]domain.CartItem, len(c.cart.Items))
	copy(items, c.cart.Items)
	return domain.Cart{Items: items}
}

// ---- draft mutations ----

// SetCustomerName updates the name field.
func (c *Checkout) SetCustomerName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.CustomerName = name
	c.persistDraft()
}

// SetPhone normalizes the phone to at most 11 digits and, for declared
// existing customers, schedules the debounced backend lookup.
func (c *Checkout) SetPhone(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	digits := domain.OnlyDigits(phone)
	if len(digits) > 11 {
		digits = digits[:11]
	}
	if digits == c.draft.PhoneDigits {
		return
	}
	c.draft.PhoneDigits = digits
	c.persistDraft()
	c.scheduleLookup()
}

// SetCustomerType resolves the first-time/existing choice. Declaring
// "existing" with a complete phone triggers the lookup.
func (c *Checkout) SetCustomerType(t domain.CustomerType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t != domain.CustomerTypeExisting && t != domain.CustomerTypeNew {
		t = domain.CustomerTypeUndeclared
	}
	c.draft.CustomerType = t
	c.persistDraft()
	c.scheduleLookup()
}

// SetCEP updates the postal code and, once it has 8 digits, resolves
// it into street/neighborhood suggestions (merge-if-empty).
func (c *Checkout) SetCEP(cep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	digits := domain.OnlyDigits(cep)
	if len(digits) > 8 {
		digits = digits[:8]
	}
	if digits == c.draft.CEP {
		return
	}
	c.draft.CEP = digits
	c.persistDraft()
	c.scheduleCEPLookup()
}

// SetStreet updates the street and reschedules the ETA lookup.
func (c *Checkout) SetStreet(street string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if street == c.draft.Street {
		return
	}
	c.draft.Street = street
	c.persistDraft()
	c.scheduleEta()
}

// SetNeighborhood updates the neighborhood and reschedules the ETA
// lookup; the neighborhood also feeds the fallback fee.
func (c *Checkout) SetNeighborhood(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == c.draft.Neighborhood {
		return
	}
	c.draft.Neighborhood = name
	c.persistDraft()
	c.scheduleEta()
	c.onTotalChanged()
}

// SetPickup toggles pickup. Pickup forces a zero fee and drops any
// ETA state.
func (c *Checkout) SetPickup(pickup bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pickup == c.draft.Pickup {
		return
	}
	c.draft.Pickup = pickup
	c.persistDraft()
	if pickup {
		c.cancelEta()
	} else {
		c.scheduleEta()
	}
	c.onTotalChanged()
}

// SetNotes updates the free-form notes.
func (c *Checkout) SetNotes(notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Notes = notes
	c.persistDraft()
}

// LoadProfile fills empty draft fields from an authenticated customer
// profile. User-entered data is never overridden.
func (c *Checkout) LoadProfile(p domain.CustomerProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.MergeProfile(p)
	c.persistDraft()
	c.scheduleEta()
	c.onTotalChanged()
}

// Draft returns a copy of the working draft.
func (c *Checkout) Draft() domain.OrderDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// ---- coupon and totals ----

// ApplyCoupon evaluates the promo code. Anything the rule does not
// recognize resets the discount to zero.
func (c *Checkout) ApplyCoupon(code string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.couponInput = code
	c.draft.DiscountCents = c.cfg.Coupon.DiscountCents(code)
	c.persistDraft()
	c.onTotalChanged()
	return c.draft.DiscountCents
}

// Totals is the money breakdown shown on every step.
type Totals struct {
	SubtotalCents    int64 `json:"subtotalCents"`
	DeliveryFeeCents int64 `json:"deliveryFeeCents"`
	DiscountCents    int64 `json:"discountCents"`
	TotalCents       int64 `json:"totalCents"`
}

// Totals recomputes the money breakdown from current inputs.
func (c *Checkout) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals()
}

func (c *Checkout) totals() Totals {
	subtotal := c.cart.SubtotalCents()
	fee := c.deliveryFeeCents()
	discount := c.draft.DiscountCents
	total := subtotal + fee - discount
	// The discount never drives the payable amount negative.
	if total < 0 {
		total = 0
	}
	return Totals{
		SubtotalCents:    subtotal,
		DeliveryFeeCents: fee,
		DiscountCents:    discount,
		TotalCents:       total,
	}
}

// deliveryFeeCents applies the fee policy: pickup is free, a resolved
// route distance wins, the neighborhood table is the fallback.
// Callers hold the lock.
func (c *Checkout) deliveryFeeCents() int64 {
	if c.draft.Pickup {
		return 0
	}
	if c.eta != nil {
		if km, ok := deliveryfee.ParseDistanceKm(c.eta.DistanceText); ok {
			if fee, ok := deliveryfee.ByDistance(km); ok {
				return fee
			}
		}
	}
	return deliveryfee.ByNeighborhood(c.draft.Neighborhood)
}

// ---- persistence ----

func (c *Checkout) draftKey() string { return "draft:" + c.id }

// persistDraft caches the draft on every change. Callers hold the lock.
func (c *Checkout) persistDraft() {
	if c.deps.KV == nil {
		return
	}
	raw, err := json.Marshal(c.draft)
	if err != nil {
		c.deps.Logger.Printf("encode draft: %v", err)
		return
	}
	if err := c.deps.KV.Set(context.Background(), c.draftKey(), raw); err != nil {
		c.deps.Logger.Printf("persist draft: %v", err)
	}
}

func (c *Checkout) restoreDraft() {
	if c.deps.KV == nil {
		return
	}
	raw, err := c.deps.KV.Get(context.Background(), c.draftKey())
	if err != nil {
		return
	}
	var cached domain.OrderDraft
	if err := json.Unmarshal(raw, &cached); err != nil {
		return
	}
	c.draft = cached
}

// nearlyEqualCents reports whether two totals differ by at most one
// centavo.
func nearlyEqualCents(a, b int64) bool {
	return math.Abs(float64(a-b)) <= 1
}
