package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pizzaria-checkout/internal/backend"
	"pizzaria-checkout/internal/domain"
)

// PaymentStatus is the per-method generation state.
type PaymentStatus string

const (
	PaymentIdle       PaymentStatus = "idle"
	PaymentGenerating PaymentStatus = "generating"
	PaymentReady      PaymentStatus = "ready"
	PaymentFailed     PaymentStatus = "failed"
)

var (
	// ErrPaymentInFlight means a generation for the method is already
	// running; at most one runs at a time.
	ErrPaymentInFlight = errors.New("payment generation in flight")
	// ErrStaleTotal means the order total changed while the payment
	// was being generated; the result was discarded.
	ErrStaleTotal = errors.New("order total changed during generation")
	// ErrPaymentFailed wraps a recoverable generation failure.
	ErrPaymentFailed = errors.New("payment generation failed")
)

const msgPaymentFailed = "Não foi possível gerar o pagamento. Tente novamente."

type paymentState struct {
	status   PaymentStatus
	payment  *domain.Payment
	token    string
	genTotal int64
	errMsg   string
}

// state returns the per-method slot, creating it lazily. Callers hold
// the lock.
func (c *Checkout) state(method domain.PaymentMethod) *paymentState {
	st, ok := c.payments[method]
	if !ok {
		st = &paymentState{status: PaymentIdle}
		c.payments[method] = st
	}
	return st
}

// SelectPaymentMethod switches the active method. Leaving a method
// drops its in-memory payment and its cached session.
func (c *Checkout) SelectPaymentMethod(method domain.PaymentMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if method == c.method {
		return
	}
	prev := c.method
	c.method = method
	if st, ok := c.payments[prev]; ok {
		*st = paymentState{status: PaymentIdle}
	}
	if c.deps.Sessions != nil && prev.RequiresArtifact() {
		if err := c.deps.Sessions.Clear(context.Background(), prev); err != nil {
			c.deps.Logger.Printf("clear %s session: %v", prev, err)
		}
	}
}

// PaymentMethod returns the active method.
func (c *Checkout) PaymentMethod() domain.PaymentMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// CreatePayment returns the payment artifact for the active method,
// generating one when needed:
//
//  1. without force, an existing in-memory payment is returned as is;
//  2. otherwise a valid cached session for the current total is
//     adopted;
//  3. otherwise a backend intent is created under a stable idempotency
//     token (new token only on force or first use).
//
// Methods with no artifact (cash) return nil, nil.
func (c *Checkout) CreatePayment(ctx context.Context, force bool) (*domain.Payment, error) {
	c.mu.Lock()
	method := c.method
	if !method.RequiresArtifact() {
		c.mu.Unlock()
		return nil, nil
	}
	st := c.state(method)
	if st.status == PaymentGenerating {
		c.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	if !force && st.payment != nil {
		payment := *st.payment
		c.mu.Unlock()
		return &payment, nil
	}
	if force {
		st.token = ""
		st.payment = nil
	}
	total := c.totals().TotalCents
	if st.token == "" {
		st.token = uuid.NewString()
	}
	token := st.token
	input := c.paymentInput(total)
	st.status = PaymentGenerating
	st.errMsg = ""
	c.mu.Unlock()

	if force && c.deps.Sessions != nil {
		if err := c.deps.Sessions.Clear(ctx, method); err != nil {
			c.deps.Logger.Printf("clear %s session: %v", method, err)
		}
	}

	if !force && c.deps.Sessions != nil {
		cached, err := c.deps.Sessions.Load(ctx, method, total)
		if err != nil {
			c.deps.Logger.Printf("load %s session: %v", method, err)
		}
		if cached != nil {
			return c.commitPayment(method, total, cached, false)
		}
	}

	var payment *domain.Payment
	var err error
	switch method {
	case domain.PaymentPix:
		payment, err = c.deps.Backend.CreatePixPayment(ctx, input, token)
	case domain.PaymentCard:
		payment, err = c.deps.Backend.CreateCardPayment(ctx, input, token)
	}
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		st = c.state(method)
		st.status = PaymentFailed
		st.errMsg = msgPaymentFailed
		c.deps.Logger.Printf("create %s payment: %v", method, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return c.commitPayment(method, total, payment, true)
}

// commitPayment adopts a generated or cached payment, unless the total
// drifted while the request was in flight.
func (c *Checkout) commitPayment(method domain.PaymentMethod, genTotal int64, payment *domain.Payment, persist bool) (*domain.Payment, error) {
	c.mu.Lock()
	st := c.state(method)
	if c.closed || !nearlyEqualCents(c.totals().TotalCents, genTotal) {
		st.status = PaymentIdle
		st.payment = nil
		st.token = ""
		c.mu.Unlock()
		return nil, ErrStaleTotal
	}
	st.status = PaymentReady
	st.payment = payment
	st.genTotal = genTotal
	st.errMsg = ""
	out := *payment
	c.mu.Unlock()

	if persist && c.deps.Sessions != nil {
		if err := c.deps.Sessions.Save(context.Background(), method, genTotal, *payment); err != nil {
			c.deps.Logger.Printf("save %s session: %v", method, err)
		}
	}
	return &out, nil
}

// paymentInput snapshots the draft fields the payment backend needs.
// Callers hold the lock.
func (c *Checkout) paymentInput(totalCents int64) backend.PaymentInput {
	return backend.PaymentInput{
		AmountCents:   totalCents,
		CustomerName:  c.draft.CustomerName,
		CustomerPhone: c.draft.PhoneDigits,
		Address:       c.draft.Street + ", " + c.draft.Neighborhood,
	}
}

// onTotalChanged invalidates payments generated for a different total.
// It runs synchronously with the mutation that moved the total, before
// any new generation can start. Callers hold the lock.
func (c *Checkout) onTotalChanged() {
	total := c.totals().TotalCents
	for method, st := range c.payments {
		if st.payment == nil || nearlyEqualCents(st.genTotal, total) {
			continue
		}
		*st = paymentState{status: PaymentIdle}
		if c.deps.Sessions != nil {
			m := method
			go func() {
				if err := c.deps.Sessions.Clear(context.Background(), m); err != nil {
					c.deps.Logger.Printf("clear %s session: %v", m, err)
				}
			}()
		}
	}
}

// autoGenerate kicks off a background generation when the wizard
// reaches the Payment step with nothing usable for the active method.
// Callers hold the lock.
func (c *Checkout) autoGenerate() {
	if !c.method.RequiresArtifact() {
		return
	}
	st := c.state(c.method)
	if st.status != PaymentIdle || st.payment != nil {
		return
	}
	go func() {
		if _, err := c.CreatePayment(context.Background(), false); err != nil {
			c.deps.Logger.Printf("auto payment generation: %v", err)
		}
	}()
}

// PaymentView is the payment block of the session state.
type PaymentView struct {
	Method           domain.PaymentMethod `json:"method"`
	Status           PaymentStatus        `json:"status"`
	Payment          *domain.Payment      `json:"payment,omitempty"`
	Error            string               `json:"error,omitempty"`
	PixExpiresInSecs int64                `json:"pixExpiresInSecs,omitempty"`
}

// PaymentState reports the active method's slot. The Pix countdown is
// derived from the provider expiresAt and is display-only; reuse is
// governed by the session store TTL.
func (c *Checkout) PaymentState() PaymentView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paymentView()
}
