package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"pizzaria-checkout/internal/backend"
	"pizzaria-checkout/internal/domain"
	"pizzaria-checkout/internal/geo"
	"pizzaria-checkout/internal/kv"
	"pizzaria-checkout/internal/paysession"
)

var errFailed = errors.New("stub failure")

type stubBackend struct {
	mu sync.Mutex

	lookupProfile *domain.CustomerProfile
	lookupErr     error
	lookupCalls   int
	lookupPhones  []string

	createProfile *domain.CustomerProfile
	createErr     error
	createCalls   int

	pixPayment *domain.Payment
	pixErr     error
	pixCalls   int
	pixKeys    []string

	cardPayment *domain.Payment
	cardErr     error
	cardCalls   int
	cardKeys    []string

	orderResult *backend.OrderResult
	orderErr    error
	orderCalls  int
	lastPayload map[string]interface{}
}

func (s *stubBackend) LookupCustomerByPhone(_ context.Context, phoneDigits string) (*domain.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCalls++
	s.lookupPhones = append(s.lookupPhones, phoneDigits)
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if s.lookupProfile == nil {
		return nil, domain.ErrNotFound
	}
	profile := *s.lookupProfile
	return &profile, nil
}

func (s *stubBackend) CreateCustomer(_ context.Context, _ backend.CreateCustomerInput) (*domain.CustomerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.createProfile == nil {
		return nil, errFailed
	}
	profile := *s.createProfile
	return &profile, nil
}

func (s *stubBackend) SubmitOrder(_ context.Context, payload map[string]interface{}) (*backend.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderCalls++
	s.lastPayload = payload
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	if s.orderResult == nil {
		return nil, errFailed
	}
	result := *s.orderResult
	return &result, nil
}

func (s *stubBackend) CreatePixPayment(_ context.Context, _ backend.PaymentInput, idempotencyKey string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pixCalls++
	s.pixKeys = append(s.pixKeys, idempotencyKey)
	if s.pixErr != nil {
		return nil, s.pixErr
	}
	if s.pixPayment == nil {
		return nil, errFailed
	}
	payment := *s.pixPayment
	return &payment, nil
}

func (s *stubBackend) CreateCardPayment(_ context.Context, _ backend.PaymentInput, idempotencyKey string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardCalls++
	s.cardKeys = append(s.cardKeys, idempotencyKey)
	if s.cardErr != nil {
		return nil, s.cardErr
	}
	if s.cardPayment == nil {
		return nil, errFailed
	}
	payment := *s.cardPayment
	return &payment, nil
}

// backendCalls is a race-free copy of the stub's recorded activity.
type backendCalls struct {
	lookupCalls  int
	lookupPhones []string
	createCalls  int
	pixCalls     int
	pixKeys      []string
	cardCalls    int
	cardKeys     []string
	orderCalls   int
	lastPayload  map[string]interface{}
}

func (s *stubBackend) snapshot() backendCalls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return backendCalls{
		lookupCalls:  s.lookupCalls,
		lookupPhones: append([]string(nil), s.lookupPhones...),
		createCalls:  s.createCalls,
		pixCalls:     s.pixCalls,
		pixKeys:      append([]string(nil), s.pixKeys...),
		cardCalls:    s.cardCalls,
		cardKeys:     append([]string(nil), s.cardKeys...),
		orderCalls:   s.orderCalls,
		lastPayload:  s.lastPayload,
	}
}

type routeCall struct {
	eta   *domain.DeliveryEta
	err   error
	delay time.Duration
}

type stubRoutes struct {
	mu           sync.Mutex
	calls        []routeCall
	next         int
	destinations []string
}

func (s *stubRoutes) Distance(_ context.Context, _, destination string) (*domain.DeliveryEta, error) {
	s.mu.Lock()
	s.destinations = append(s.destinations, destination)
	if len(s.calls) == 0 {
		s.mu.Unlock()
		return &domain.DeliveryEta{DistanceText: "3,2 km", DurationText: "25 min"}, nil
	}
	idx := s.next
	if idx >= len(s.calls) {
		idx = len(s.calls) - 1
	}
	s.next++
	call := s.calls[idx]
	s.mu.Unlock()

	if call.delay > 0 {
		time.Sleep(call.delay)
	}
	if call.err != nil {
		return nil, call.err
	}
	eta := *call.eta
	return &eta, nil
}

func (s *stubRoutes) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.destinations)
}

type stubCEP struct {
	mu    sync.Mutex
	addr  *geo.Address
	err   error
	calls int
}

func (s *stubCEP) Lookup(_ context.Context, _ string) (*geo.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	addr := *s.addr
	return &addr, nil
}

const testDebounce = 10 * time.Millisecond

// settle waits long enough for debounce timers and stub calls to run.
func settle() {
	time.Sleep(120 * time.Millisecond)
}

func newTestCheckout(be *stubBackend, routes *stubRoutes, cep *stubCEP) *Checkout {
	store := kv.NewMemory()
	deps := Deps{
		Backend:  be,
		Routes:   routes,
		Sessions: paysession.New(store, "test"),
		KV:       store,
	}
	if cep != nil {
		deps.CEP = cep
	}
	return New("test", deps, Config{
		StoreOrigin:     "Rua da Pizzaria, 1",
		PhoneDebounce:   testDebounce,
		AddressDebounce: testDebounce,
	})
}

func pizzaItem() domain.CartItem {
	return domain.CartItem{
		ID:             "pizza-calabresa",
		Name:           "Calabresa",
		Size:           domain.SizeGrande,
		Quantity:       1,
		UnitPriceCents: 5000,
	}
}

// fillCustomerData brings the session to a state where the step-1
// guard holds, waiting for the ETA to settle.
func fillCustomerData(c *Checkout) {
	c.SetCustomerName("Maria")
	c.SetPhone("(11) 98888-7777")
	c.SetCustomerType(domain.CustomerTypeNew)
	c.SetCEP("01001-000")
	c.SetStreet("Rua A, 10")
	c.SetNeighborhood("Centro")
	settle()
}
