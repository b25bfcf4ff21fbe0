package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"pizzaria-checkout/internal/domain"
)

// User-facing resolver messages (storefront language).
const (
	msgCustomerNotFound  = "Não encontramos seu cadastro. Você pode continuar como novo cliente."
	msgCustomerLookupErr = "Não foi possível consultar seu cadastro agora. Continue preenchendo seus dados."
	msgEtaUnavailable    = "Não foi possível calcular a distância. Usaremos a taxa do seu bairro."
)

// ---- customer lookup (debounced, ~800ms) ----

// scheduleLookup arms the phone-lookup debounce. It only fires for a
// declared existing customer with a dialable phone, and re-querying
// digits that were already checked is a no-op. Callers hold the lock.
func (c *Checkout) scheduleLookup() {
	if c.closed {
		return
	}
	c.lookupGen++
	if c.lookupTimer != nil {
		c.lookupTimer.Stop()
	}
	if c.draft.CustomerType != domain.CustomerTypeExisting {
		return
	}
	if len(c.draft.PhoneDigits) < 10 {
		return
	}
	if c.draft.PhoneDigits == c.lastLookup {
		return
	}
	gen := c.lookupGen
	c.lookupTimer = time.AfterFunc(c.cfg.PhoneDebounce, func() { c.runLookup(gen) })
}

func (c *Checkout) runLookup(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.lookupGen || c.lookupInFlight {
		c.mu.Unlock()
		return
	}
	digits := c.draft.PhoneDigits
	if digits == c.lastLookup || len(digits) < 10 {
		c.mu.Unlock()
		return
	}
	c.lookupInFlight = true
	c.mu.Unlock()

	profile, err := c.deps.Backend.LookupCustomerByPhone(context.Background(), digits)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookupInFlight = false
	if c.closed || gen != c.lookupGen {
		return
	}
	c.lastLookup = digits

	switch {
	case err == nil:
		c.lookupMsg = ""
		c.draft.MergeProfile(*profile)
		c.persistDraft()
		c.scheduleEta()
		c.onTotalChanged()
	case errors.Is(err, domain.ErrNotFound):
		c.lookupMsg = msgCustomerNotFound
	default:
		c.deps.Logger.Printf("customer lookup: %v", err)
		c.lookupMsg = msgCustomerLookupErr
	}
}

// LookupMessage returns the current customer-lookup notice, empty when
// there is none.
func (c *Checkout) LookupMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupMsg
}

// ---- delivery ETA (debounced, ~500ms) ----

// scheduleEta arms the route-lookup debounce when the destination is
// usable. Callers hold the lock.
func (c *Checkout) scheduleEta() {
	if c.closed {
		return
	}
	c.etaGen++
	if c.etaTimer != nil {
		c.etaTimer.Stop()
	}
	if c.draft.Pickup {
		return
	}
	if len(strings.TrimSpace(c.draft.Street+c.draft.Neighborhood)) < 5 {
		c.etaPending = false
		return
	}
	c.etaPending = true
	gen := c.etaGen
	c.etaTimer = time.AfterFunc(c.cfg.AddressDebounce, func() { c.runEta(gen) })
}

// cancelEta discards ETA state entirely (pickup). Callers hold the
// lock.
func (c *Checkout) cancelEta() {
	c.etaGen++
	if c.etaTimer != nil {
		c.etaTimer.Stop()
	}
	c.eta = nil
	c.etaErr = ""
	c.etaPending = false
}

func (c *Checkout) runEta(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.etaGen {
		c.mu.Unlock()
		return
	}
	destination := strings.TrimSpace(c.draft.Street + ", " + c.draft.Neighborhood)
	origin := c.cfg.StoreOrigin
	c.mu.Unlock()

	eta, err := c.deps.Routes.Distance(context.Background(), origin, destination)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.etaGen {
		return
	}
	c.etaPending = false
	if err != nil {
		c.deps.Logger.Printf("route lookup: %v", err)
		c.eta = nil
		c.etaErr = msgEtaUnavailable
	} else {
		c.eta = eta
		c.etaErr = ""
	}
	c.onTotalChanged()
}

// Eta returns the current estimate, the inline error message and
// whether a lookup is still pending.
func (c *Checkout) Eta() (*domain.DeliveryEta, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eta == nil {
		return nil, c.etaErr, c.etaPending
	}
	eta := *c.eta
	return &eta, c.etaErr, c.etaPending
}

// ---- CEP autofill ----

// scheduleCEPLookup resolves a complete CEP into address suggestions.
// No debounce: the field only reaches 8 digits once per edit. Callers
// hold the lock.
func (c *Checkout) scheduleCEPLookup() {
	if c.closed || c.deps.CEP == nil {
		return
	}
	if len(c.draft.CEP) != 8 || c.draft.CEP == c.lastCEPLookup {
		return
	}
	c.lastCEPLookup = c.draft.CEP
	cep := c.draft.CEP
	gen := c.etaGen
	go func() {
		addr, err := c.deps.CEP.Lookup(context.Background(), cep)
		if err != nil {
			c.deps.Logger.Printf("cep lookup: %v", err)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || c.draft.CEP != cep {
			return
		}
		// Suggestions only: typed fields win.
		if c.draft.Street == "" {
			c.draft.Street = addr.Street
		}
		if c.draft.Neighborhood == "" {
			c.draft.Neighborhood = addr.Neighborhood
		}
		c.persistDraft()
		if gen == c.etaGen {
			c.scheduleEta()
		}
		c.onTotalChanged()
	}()
}

