package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pizzaria-checkout/internal/backend"
	"pizzaria-checkout/internal/domain"
)

const (
	msgSubmitIncomplete = "Confira os dados do pedido antes de finalizar."
	msgSubmitFailed     = "Não foi possível enviar seu pedido. Tente novamente."
	msgPixRequired      = "Gere o pagamento Pix antes de finalizar o pedido."
)

// SubmitResult is the tagged outcome of Submit. Errors never cross
// this boundary as panics or raw error values.
type SubmitResult struct {
	Success   bool                 `json:"success"`
	OrderID   string               `json:"orderId,omitempty"`
	OrderCode string               `json:"orderCode,omitempty"`
	Summary   *domain.OrderSummary `json:"summary,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// CanSubmit reports whether the submission guard currently holds:
// non-empty cart, complete customer data and, for Pix, an existing
// payment artifact.
func (c *Checkout) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cart.Empty() || !c.customerDataComplete() {
		return false
	}
	if c.method == domain.PaymentPix {
		return c.state(domain.PaymentPix).payment != nil
	}
	return true
}

// Submit runs the whole submission sequence: guard, best-effort
// customer creation, hard Pix-payment requirement, order post,
// response reconciliation, summary persistence and finally cart
// clearing. On any failure the cart is preserved so the user can
// retry from the Payment step.
func (c *Checkout) Submit(ctx context.Context) (result SubmitResult) {
	defer func() {
		if r := recover(); r != nil {
			c.deps.Logger.Printf("submit recovered: %v", r)
			result = SubmitResult{Error: msgSubmitFailed}
		}
	}()

	c.mu.Lock()
	if c.cart.Empty() || !c.customerDataComplete() {
		c.mu.Unlock()
		return SubmitResult{Error: msgSubmitIncomplete}
	}
	method := c.method
	draft := c.draft
	items := make([]domain.CartItem, len(c.cart.Items))
	copy(items, c.cart.Items)
	totals := c.totals()
	var eta *domain.DeliveryEta
	if c.eta != nil {
		snapshot := *c.eta
		eta = &snapshot
	}
	c.mu.Unlock()

	// Customer creation is best effort: the order goes through either
	// way, just without a linked customer record.
	if draft.CustomerID == "" {
		profile, err := c.deps.Backend.CreateCustomer(ctx, backend.CreateCustomerInput{
			Name:         draft.CustomerName,
			Phone:        draft.PhoneDigits,
			CEP:          draft.CEP,
			Street:       draft.Street,
			Neighborhood: draft.Neighborhood,
		})
		if err != nil {
			c.deps.Logger.Printf("create customer: %v", err)
		} else {
			draft.CustomerID = profile.ID
			c.mu.Lock()
			if c.draft.CustomerID == "" {
				c.draft.CustomerID = profile.ID
				c.persistDraft()
			}
			c.mu.Unlock()
		}
	}

	// A Pix order without a payable code is unshippable; the whole
	// submission fails here.
	var payment *domain.Payment
	if method == domain.PaymentPix {
		generated, err := c.CreatePayment(ctx, false)
		if err != nil || generated == nil {
			if err != nil {
				c.deps.Logger.Printf("ensure pix payment: %v", err)
			}
			return SubmitResult{Error: msgPixRequired}
		}
		payment = generated
	} else if method.RequiresArtifact() {
		c.mu.Lock()
		if st := c.state(method); st.payment != nil {
			snapshot := *st.payment
			payment = &snapshot
		}
		c.mu.Unlock()
	}

	payload := buildOrderPayload(draft, items, totals, method, payment, eta)
	res, err := c.deps.Backend.SubmitOrder(ctx, payload)
	if err != nil {
		c.deps.Logger.Printf("submit order: %v", err)
		return SubmitResult{Error: msgSubmitFailed}
	}

	summary := buildSummary(res, draft, items, totals, method, payment, eta)
	c.persistSummary(summary)

	c.mu.Lock()
	c.cart.Clear()
	c.onTotalChanged()
	c.mu.Unlock()

	return SubmitResult{
		Success:   true,
		OrderID:   summary.OrderID,
		OrderCode: summary.OrderCode,
		Summary:   summary,
	}
}

// buildOrderPayload assembles the wire payload for POST /api/orders.
func buildOrderPayload(draft domain.OrderDraft, items []domain.CartItem, totals Totals, method domain.PaymentMethod, payment *domain.Payment, eta *domain.DeliveryEta) map[string]interface{} {
	encoded := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		line := map[string]interface{}{
			"id":             it.ID,
			"name":           it.Name,
			"size":           it.Size,
			"quantity":       it.Quantity,
			"unitPriceCents": it.UnitPriceCents,
		}
		if len(it.Flavors) > 0 {
			line["flavors"] = it.Flavors
		}
		if it.HalfFlavor != "" {
			line["halfFlavor"] = it.HalfFlavor
		}
		if len(it.Extras) > 0 {
			line["extras"] = it.Extras
		}
		if it.CrustType != "" {
			line["crustType"] = it.CrustType
		}
		encoded = append(encoded, line)
	}

	paymentBlock := map[string]interface{}{"method": string(method)}
	if payment != nil {
		paymentBlock["transactionId"] = payment.TransactionID
		paymentBlock["status"] = payment.Status
		if payment.PixCode != "" {
			paymentBlock["pixCode"] = payment.PixCode
		}
	}

	deliveryBlock := map[string]interface{}{
		"pickup":   draft.Pickup,
		"feeCents": totals.DeliveryFeeCents,
	}
	if eta != nil {
		deliveryBlock["distanceText"] = eta.DistanceText
		deliveryBlock["durationText"] = eta.DurationText
	}

	return map[string]interface{}{
		"customer": map[string]interface{}{
			"id":           draft.CustomerID,
			"name":         draft.CustomerName,
			"phone":        draft.PhoneDigits,
			"cep":          draft.CEP,
			"street":       draft.Street,
			"neighborhood": draft.Neighborhood,
		},
		"items":    encoded,
		"payment":  paymentBlock,
		"delivery": deliveryBlock,
		"notes":    draft.Notes,
		"totals": map[string]interface{}{
			"subtotalCents":    totals.SubtotalCents,
			"deliveryFeeCents": totals.DeliveryFeeCents,
			"discountCents":    totals.DiscountCents,
			"totalCents":       totals.TotalCents,
		},
	}
}

func buildSummary(res *backend.OrderResult, draft domain.OrderDraft, items []domain.CartItem, totals Totals, method domain.PaymentMethod, payment *domain.Payment, eta *domain.DeliveryEta) *domain.OrderSummary {
	summary := &domain.OrderSummary{
		OrderID:          res.OrderID,
		OrderCode:        res.OrderCode,
		PlacedAt:         time.Now().UTC(),
		Items:            items,
		SubtotalCents:    totals.SubtotalCents,
		DeliveryFeeCents: totals.DeliveryFeeCents,
		DiscountCents:    totals.DiscountCents,
		TotalCents:       totals.TotalCents,
		PaymentMethod:    method,
		Payment:          payment,
		Customer:         draft,
		Eta:              eta,
	}
	summary.Message = summaryMessage(summary)
	return summary
}

// summaryMessage renders the confirmation text shown (and shareable)
// after the order goes through.
func summaryMessage(s *domain.OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pedido #%s confirmado!\n", s.OrderCode)
	for _, it := range s.Items {
		name := it.Name
		if it.Size != domain.SizeUnico && it.Size != "" {
			name += " (" + it.Size + ")"
		}
		fmt.Fprintf(&b, "%dx %s - %s\n", it.Quantity, name, formatReais(it.TotalCents()))
	}
	fmt.Fprintf(&b, "Subtotal: %s\n", formatReais(s.SubtotalCents))
	if s.Customer.Pickup {
		b.WriteString("Retirada no balcão\n")
	} else {
		fmt.Fprintf(&b, "Entrega: %s\n", formatReais(s.DeliveryFeeCents))
	}
	if s.DiscountCents > 0 {
		fmt.Fprintf(&b, "Desconto: -%s\n", formatReais(s.DiscountCents))
	}
	fmt.Fprintf(&b, "Total: %s", formatReais(s.TotalCents))
	return b.String()
}

func formatReais(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}

func (c *Checkout) summaryKey() string { return "lastorder:" + c.id }

// persistSummary stores the summary for the confirmation view. No TTL:
// it lives until the next submission overwrites it.
func (c *Checkout) persistSummary(summary *domain.OrderSummary) {
	if c.deps.KV == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		c.deps.Logger.Printf("encode order summary: %v", err)
		return
	}
	if err := c.deps.KV.Set(context.Background(), c.summaryKey(), raw); err != nil {
		c.deps.Logger.Printf("persist order summary: %v", err)
	}
}

// LastSummary loads the persisted confirmation summary, or
// domain.ErrNotFound when no order was submitted yet.
func (c *Checkout) LastSummary(ctx context.Context) (*domain.OrderSummary, error) {
	if c.deps.KV == nil {
		return nil, domain.ErrNotFound
	}
	raw, err := c.deps.KV.Get(ctx, c.summaryKey())
	if err != nil {
		return nil, err
	}
	var summary domain.OrderSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode order summary: %w", err)
	}
	return &summary, nil
}
