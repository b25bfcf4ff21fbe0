// Package paysession caches generated payments per payment method so a
// user returning to the Payment step does not mint a duplicate intent.
// A cached session is only reusable while it is fresh and was generated
// for the current order total.
package paysession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pizzaria-checkout/internal/domain"
	"pizzaria-checkout/internal/kv"
)

// TTL is the fixed reuse window. The provider's own expiresAt is
// display-only; this window alone governs reuse.
const TTL = 15 * time.Minute

// Generated payments are amount-locked; anything beyond a one-centavo
// drift means the session no longer matches the order.
const totalToleranceCents = 1

// Session is the persisted envelope around a generated payment.
type Session struct {
	CreatedAt  time.Time      `json:"createdAt"`
	TotalCents int64          `json:"totalCents"`
	Payment    domain.Payment `json:"payment"`
}

// Store persists payment sessions in a kv.Store, keyed per checkout
// session and method. The scope keeps concurrent checkouts from
// adopting each other's payments.
type Store struct {
	kv    kv.Store
	scope string
	now   func() time.Time
}

// New returns a Store over the given persistence capability, scoped to
// one checkout session.
func New(store kv.Store, scope string) *Store {
	return &Store{kv: store, scope: scope, now: time.Now}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(store kv.Store, scope string, now func() time.Time) *Store {
	return &Store{kv: store, scope: scope, now: now}
}

// Load returns the cached payment for the method when it is younger
// than TTL and was generated for expectedTotal (within tolerance).
// Stale or mismatched entries are evicted and nil is returned.
func (s *Store) Load(ctx context.Context, method domain.PaymentMethod, expectedTotalCents int64) (*domain.Payment, error) {
	raw, err := s.kv.Get(ctx, s.key(method))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		_ = s.kv.Remove(ctx, s.key(method))
		return nil, nil
	}

	age := s.now().Sub(sess.CreatedAt)
	drift := sess.TotalCents - expectedTotalCents
	if drift < 0 {
		drift = -drift
	}
	if age > TTL || drift > totalToleranceCents {
		if err := s.kv.Remove(ctx, s.key(method)); err != nil {
			return nil, fmt.Errorf("evict payment session: %w", err)
		}
		return nil, nil
	}

	payment := sess.Payment
	return &payment, nil
}

// Save overwrites the session for the method with a fresh envelope.
func (s *Store) Save(ctx context.Context, method domain.PaymentMethod, totalCents int64, payment domain.Payment) error {
	raw, err := json.Marshal(Session{
		CreatedAt:  s.now(),
		TotalCents: totalCents,
		Payment:    payment,
	})
	if err != nil {
		return fmt.Errorf("encode payment session: %w", err)
	}
	if err := s.kv.SetTTL(ctx, s.key(method), raw, TTL); err != nil {
		return fmt.Errorf("save payment session: %w", err)
	}
	return nil
}

// Clear removes the session for the method.
func (s *Store) Clear(ctx context.Context, method domain.PaymentMethod) error {
	return s.kv.Remove(ctx, s.key(method))
}

func (s *Store) key(method domain.PaymentMethod) string {
	return "paysession:" + s.scope + ":" + string(method)
}
