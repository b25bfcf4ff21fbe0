package backend

import (
	"encoding/json"
	"errors"
	"testing"

	"pizzaria-checkout/internal/domain"
)

func TestNormalizeOrderShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		id   string
		code string
	}{
		{"direct", `{"id":"abc-123","code":"42"}`, "abc-123", "42"},
		{"wrapped", `{"order":{"id":"abc-123"}}`, "abc-123", "123"},
		{"items", `{"items":[{"id":"abc-123"}]}`, "abc-123", "123"},
		{"orderId key", `{"orderId":"xyz"}`, "xyz", "xyz"},
	}
	for _, tc := range cases {
		got, err := normalizeOrder(json.RawMessage(tc.raw))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got.OrderID != tc.id || got.OrderCode != tc.code {
			t.Fatalf("%s: got %q/%q, want %q/%q", tc.name, got.OrderID, got.OrderCode, tc.id, tc.code)
		}
	}
}

func TestNormalizeOrderNoID(t *testing.T) {
	if _, err := normalizeOrder(json.RawMessage(`{"status":"ok"}`)); err == nil {
		t.Fatalf("expected error for response without id")
	}
}

func TestNormalizeCustomerShapes(t *testing.T) {
	raw := `{"customer":{"id":"c1","nome":"Maria","telefone":"(11) 98888-7777","endereco":{"logradouro":"Rua A, 10","bairro":"Centro","cep":"01001000"}}}`
	got, err := normalizeCustomer(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.ID != "c1" || got.Name != "Maria" || got.Street != "Rua A, 10" || got.Neighborhood != "Centro" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	flat := `{"id":"c2","name":"Joao","phone":"11977776666","street":"Rua B","neighborhood":"Moema","cep":"04001000"}`
	got, err = normalizeCustomer(json.RawMessage(flat))
	if err != nil {
		t.Fatalf("normalize flat: %v", err)
	}
	if got.ID != "c2" || got.Street != "Rua B" {
		t.Fatalf("unexpected flat profile: %+v", got)
	}
}

func TestNormalizePaymentDirectString(t *testing.T) {
	got, err := normalizePayment(json.RawMessage(`"00020126pixcode"`), domain.PaymentPix)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.PixCode != "00020126pixcode" {
		t.Fatalf("unexpected payment: %+v", got)
	}
}

func TestNormalizePaymentTransaction(t *testing.T) {
	raw := `{"transaction":{"id":"tx9","status":"pending","amount":52.5,"metadata":{"pix":{"copyPaste":"codigo-pix","qr_code":"QRDATA","expiresAt":"2025-03-01T12:30:00Z"}}}}`
	got, err := normalizePayment(json.RawMessage(raw), domain.PaymentPix)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.TransactionID != "tx9" || got.PixCode != "codigo-pix" || got.PixQRCode != "QRDATA" {
		t.Fatalf("unexpected payment: %+v", got)
	}
	if got.AmountCents != 5250 {
		t.Fatalf("amount: got %d", got.AmountCents)
	}
	if got.ExpiresAt.IsZero() {
		t.Fatalf("expected expiresAt to be parsed")
	}
}

func TestNormalizePaymentDataEnvelopeAndCents(t *testing.T) {
	raw := `{"data":{"providerReference":"ref1","status":"paid","amountCents":5250}}`
	got, err := normalizePayment(json.RawMessage(raw), domain.PaymentCard)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.TransactionID != "ref1" || got.AmountCents != 5250 {
		t.Fatalf("unexpected payment: %+v", got)
	}
}

func TestNormalizePaymentCardRedirect(t *testing.T) {
	raw := `{"transaction":{"id":"tx1","metadata":{"providerRaw":{"url":"https://pay.example/redir"}}}}`
	got, err := normalizePayment(json.RawMessage(raw), domain.PaymentCard)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.RedirectURL != "https://pay.example/redir" {
		t.Fatalf("unexpected redirect: %+v", got)
	}
}

func TestNormalizePaymentPixWithoutCode(t *testing.T) {
	raw := `{"transaction":{"id":"tx1","status":"pending"}}`
	_, err := normalizePayment(json.RawMessage(raw), domain.PaymentPix)
	if !errors.Is(err, ErrNoPixCode) {
		t.Fatalf("expected ErrNoPixCode, got %v", err)
	}
}
