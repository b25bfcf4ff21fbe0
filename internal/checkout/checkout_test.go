package checkout

import (
	"testing"

	"pizzaria-checkout/internal/domain"
)

func TestAdvanceBlockedOnEmptyCart(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	if got := c.Advance(); got != StepCart {
		t.Fatalf("advance with empty cart moved to step %d", got)
	}
}

func TestAdvanceThroughWizard(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	if got := c.Advance(); got != StepCustomerData {
		t.Fatalf("expected customer data step, got %d", got)
	}

	// Incomplete customer data pins the wizard.
	if got := c.Advance(); got != StepCustomerData {
		t.Fatalf("advance with empty customer data moved to step %d", got)
	}

	fillCustomerData(c)
	if got := c.Advance(); got != StepReview {
		t.Fatalf("expected review step, got %d", got)
	}
	if got := c.Advance(); got != StepPayment {
		t.Fatalf("expected payment step, got %d", got)
	}
	if got := c.Advance(); got != StepPayment {
		t.Fatalf("payment step should be terminal, got %d", got)
	}
}

func TestAdvanceBlockedOnShortCEP(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	c.Advance()
	c.SetCustomerName("Maria")
	c.SetPhone("11988887777")
	c.SetCustomerType(domain.CustomerTypeNew)
	c.SetCEP("0100100") // 7 digits
	c.SetStreet("Rua A, 10")
	c.SetNeighborhood("Centro")
	settle()

	if got := c.Advance(); got != StepCustomerData {
		t.Fatalf("7-digit CEP should block, got step %d", got)
	}
}

func TestAdvancePickupSkipsAddress(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	c.Advance()
	c.SetCustomerName("Maria")
	c.SetPhone("11988887777")
	c.SetCustomerType(domain.CustomerTypeNew)
	c.SetPickup(true)

	if got := c.Advance(); got != StepReview {
		t.Fatalf("pickup with empty address should advance, got step %d", got)
	}
}

func TestBackAndGoTo(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	if got := c.Back(); got != StepCart {
		t.Fatalf("back is floored at the cart, got %d", got)
	}
	if got := c.GoTo(StepReview); got != StepCart {
		t.Fatalf("jump past cart with empty cart should be refused, got %d", got)
	}

	c.AddItem(pizzaItem())
	if got := c.GoTo(StepReview); got != StepReview {
		t.Fatalf("direct jump failed, got %d", got)
	}
	if got := c.Back(); got != StepCustomerData {
		t.Fatalf("back from review, got %d", got)
	}
}

func TestCartQuantityZeroRemovesLine(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	broto := pizzaItem()
	broto.Size = domain.SizeBroto
	broto.UnitPriceCents = 3000
	c.AddItem(broto)

	// Same (id, size) merges instead of duplicating.
	c.AddItem(pizzaItem())
	cart := c.Cart()
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 2 {
		t.Fatalf("expected merged quantity 2, got %d", cart.Items[0].Quantity)
	}

	c.SetQuantity("pizza-calabresa", domain.SizeGrande, 0)
	cart = c.Cart()
	if len(cart.Items) != 1 || cart.Items[0].Size != domain.SizeBroto {
		t.Fatalf("expected only the broto line, got %+v", cart.Items)
	}
}

func TestCouponApplication(t *testing.T) {
	c := newTestCheckout(&stubBackend{}, &stubRoutes{}, nil)
	defer c.Close()

	if got := c.ApplyCoupon("  PRIMEIRA "); got != 500 {
		t.Fatalf("coupon should grant 500, got %d", got)
	}
	if got := c.Draft().DiscountCents; got != 500 {
		t.Fatalf("draft discount not set, got %d", got)
	}
	if got := c.ApplyCoupon("outro-codigo"); got != 0 {
		t.Fatalf("unknown coupon should clear discount, got %d", got)
	}
}

func TestTotalsEndToEnd(t *testing.T) {
	routes := &stubRoutes{calls: []routeCall{{eta: &domain.DeliveryEta{DistanceText: "3,2 km", DurationText: "25 min"}}}}
	c := newTestCheckout(&stubBackend{}, routes, nil)
	defer c.Close()

	c.AddItem(pizzaItem()) // 5000
	c.Advance()
	fillCustomerData(c) // 3.2 km -> 750

	c.ApplyCoupon("primeira") // -500

	totals := c.Totals()
	if totals.SubtotalCents != 5000 || totals.DeliveryFeeCents != 750 || totals.DiscountCents != 500 {
		t.Fatalf("unexpected breakdown: %+v", totals)
	}
	if totals.TotalCents != 5250 {
		t.Fatalf("total: got %d, want 5250", totals.TotalCents)
	}
}

func TestTotalsDiscountClamped(t *testing.T) {
	c := New("t", Deps{Backend: &stubBackend{}, Routes: &stubRoutes{}}, Config{
		Coupon:          FixedCoupon{Code: "mega", Cents: 100000},
		PhoneDebounce:   testDebounce,
		AddressDebounce: testDebounce,
	})
	defer c.Close()

	c.AddItem(pizzaItem())
	c.ApplyCoupon("mega")
	if got := c.Totals().TotalCents; got != 0 {
		t.Fatalf("total must not go negative, got %d", got)
	}
}

func TestPickupForcesZeroFee(t *testing.T) {
	routes := &stubRoutes{}
	c := newTestCheckout(&stubBackend{}, routes, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	c.Advance()
	fillCustomerData(c)
	if got := c.Totals().DeliveryFeeCents; got == 0 {
		t.Fatalf("expected a delivery fee before pickup")
	}

	c.SetPickup(true)
	if got := c.Totals().DeliveryFeeCents; got != 0 {
		t.Fatalf("pickup fee: got %d, want 0", got)
	}
	if eta, _, pending := c.Eta(); eta != nil || pending {
		t.Fatalf("pickup must drop ETA state")
	}
}

func TestEtaErrorFallsBackToNeighborhoodFee(t *testing.T) {
	routes := &stubRoutes{calls: []routeCall{{err: errFailed}}}
	c := newTestCheckout(&stubBackend{}, routes, nil)
	defer c.Close()

	c.AddItem(pizzaItem())
	c.Advance()
	fillCustomerData(c)

	_, etaErr, pending := c.Eta()
	if pending || etaErr == "" {
		t.Fatalf("expected settled error state, pending=%v err=%q", pending, etaErr)
	}
	// Centro's table fee, not a distance fee.
	if got := c.Totals().DeliveryFeeCents; got != 500 {
		t.Fatalf("fallback fee: got %d, want 500", got)
	}
	// A failed lookup does not block the wizard.
	if got := c.Advance(); got != StepReview {
		t.Fatalf("eta failure should not block advance, got step %d", got)
	}
}
