package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pizzaria-checkout/internal/domain"
)

func TestLookupCustomerByPhoneNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.LookupCustomerByPhone(context.Background(), "11988887777")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLookupCustomerByPhoneFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/customers/by-phone" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("phone"); got != "11988887777" {
			t.Errorf("unexpected phone %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "c1", "name": "Maria"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	got, err := client.LookupCustomerByPhone(context.Background(), "11988887777")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != "c1" || got.Name != "Maria" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCreatePixPaymentSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"payload": "codigo-pix"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	payment, err := client.CreatePixPayment(context.Background(), PaymentInput{
		AmountCents:   5250,
		CustomerName:  "Maria",
		CustomerPhone: "11988887777",
	}, "token-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if payment.PixCode != "codigo-pix" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if gotKey != "token-1" {
		t.Fatalf("idempotency key not sent, got %q", gotKey)
	}
	if amount, _ := gotBody["amount"].(float64); amount != 52.5 {
		t.Fatalf("amount on the wire should be reais, got %v", gotBody["amount"])
	}
}

func TestSubmitOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	if _, err := client.SubmitOrder(context.Background(), map[string]interface{}{}); err == nil {
		t.Fatalf("expected error on 500")
	}
}
