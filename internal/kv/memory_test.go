package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"pizzaria-checkout/internal/domain"
)

func TestMemoryGetMissing(t *testing.T) {
	store := NewMemory()
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemorySetGetRemove(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("get: %q, %v", got, err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.SetTTL(ctx, "k", []byte("v"), 10*time.Minute); err != nil {
		t.Fatalf("set ttl: %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live entry, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
}
