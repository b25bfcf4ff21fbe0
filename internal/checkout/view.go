package checkout

import (
	"time"

	"pizzaria-checkout/internal/domain"
)

// View is the full session snapshot the storefront renders from.
type View struct {
	ID             string              `json:"id"`
	Step           Step                `json:"step"`
	Cart           domain.Cart         `json:"cart"`
	Draft          domain.OrderDraft   `json:"draft"`
	PhoneFormatted string              `json:"phoneFormatted"`
	Totals         Totals              `json:"totals"`
	Eta            *domain.DeliveryEta `json:"eta,omitempty"`
	EtaError       string              `json:"etaError,omitempty"`
	EtaPending     bool                `json:"etaPending"`
	LookupMessage  string              `json:"lookupMessage,omitempty"`
	FieldsUnlocked bool                `json:"fieldsUnlocked"`
	CanAdvance     bool                `json:"canAdvance"`
	CanSubmit      bool                `json:"canSubmit"`
	Payment        PaymentView         `json:"payment"`
}

// View assembles the snapshot under a single lock acquisition.
func (c *Checkout) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.CartItem, len(c.cart.Items))
	copy(items, c.cart.Items)

	var eta *domain.DeliveryEta
	if c.eta != nil {
		snapshot := *c.eta
		eta = &snapshot
	}

	canSubmit := !c.cart.Empty() && c.customerDataComplete()
	if canSubmit && c.method == domain.PaymentPix {
		canSubmit = c.state(domain.PaymentPix).payment != nil
	}

	return View{
		ID:             c.id,
		Step:           c.step,
		Cart:           domain.Cart{Items: items},
		Draft:          c.draft,
		PhoneFormatted: domain.FormatPhone(c.draft.PhoneDigits),
		Totals:         c.totals(),
		Eta:            eta,
		EtaError:       c.etaErr,
		EtaPending:     c.etaPending,
		LookupMessage:  c.lookupMsg,
		FieldsUnlocked: len(c.draft.PhoneDigits) >= 10 && c.draft.CustomerType != domain.CustomerTypeUndeclared,
		CanAdvance:     c.advanceAllowed(),
		CanSubmit:      canSubmit,
		Payment:        c.paymentView(),
	}
}

// paymentView is PaymentState without locking. Callers hold the lock.
func (c *Checkout) paymentView() PaymentView {
	st := c.state(c.method)
	view := PaymentView{Method: c.method, Status: st.status, Error: st.errMsg}
	if st.payment != nil {
		payment := *st.payment
		view.Payment = &payment
		if c.method == domain.PaymentPix && !payment.ExpiresAt.IsZero() {
			if remaining := time.Until(payment.ExpiresAt); remaining > 0 {
				view.PixExpiresInSecs = int64(remaining.Seconds())
			}
		}
	}
	return view
}
