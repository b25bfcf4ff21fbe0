package backend

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"pizzaria-checkout/internal/domain"
)

// ErrNoPixCode is returned when a Pix response carries no payable code.
// The caller treats it as a recoverable generation failure.
var ErrNoPixCode = errors.New("pix response has no payable code")

// OrderResult is the reconciled outcome of an order submission.
type OrderResult struct {
	OrderID   string
	OrderCode string
	Raw       json.RawMessage
}

// normalizeOrder reconciles the order-submission response. Accepted
// shapes, in priority order: {"order": {...}}, {"items": [{...}]}
// (first item), or the order object directly. The human code falls
// back to the last dash-segment of the id.
func normalizeOrder(raw json.RawMessage) (*OrderResult, error) {
	var envelope map[string]json.RawMessage
	obj := raw
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if inner, ok := envelope["order"]; ok {
			obj = inner
		} else if items, ok := envelope["items"]; ok {
			var list []json.RawMessage
			if err := json.Unmarshal(items, &list); err == nil && len(list) > 0 {
				obj = list[0]
			}
		}
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(obj, &fields); err != nil {
		return nil, err
	}

	id := firstString(fields, "id", "orderId", "_id", "uuid")
	code := firstString(fields, "code", "orderCode", "codigo")
	if code == "" && id != "" {
		segments := strings.Split(id, "-")
		code = segments[len(segments)-1]
	}
	if id == "" {
		return nil, errors.New("order response has no id")
	}
	return &OrderResult{OrderID: id, OrderCode: code, Raw: raw}, nil
}

// normalizeCustomer extracts a profile from a customer response,
// tolerating both english and portuguese field names and a flat or
// nested address.
func normalizeCustomer(raw json.RawMessage) (*domain.CustomerProfile, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if inner, ok := fields["customer"].(map[string]interface{}); ok {
		fields = inner
	}

	profile := domain.CustomerProfile{
		ID:    firstString(fields, "id", "_id"),
		Name:  firstString(fields, "name", "nome"),
		Phone: firstString(fields, "phone", "telefone"),
		Email: firstString(fields, "email"),
	}

	addr := fields
	if nested, ok := fields["address"].(map[string]interface{}); ok {
		addr = nested
	} else if nested, ok := fields["endereco"].(map[string]interface{}); ok {
		addr = nested
	}
	profile.CEP = firstString(addr, "cep", "postalCode")
	profile.Street = firstString(addr, "street", "logradouro", "rua")
	profile.Neighborhood = firstString(addr, "neighborhood", "bairro")

	if profile.ID == "" {
		return nil, errors.New("customer response has no id")
	}
	return &profile, nil
}

// normalizePayment extracts a Payment from a payment-creation
// response. Accepted shapes, in priority order:
//  1. a bare JSON string — the Pix copy-paste code itself;
//  2. {"payload": "..."} — copy-paste code with no transaction;
//  3. {"transaction": {...}} or {"data": {...}} or the transaction
//     object directly, with pix details under metadata.pix.
//
// For Pix a payable code is mandatory; its absence is ErrNoPixCode.
func normalizePayment(raw json.RawMessage, method domain.PaymentMethod) (*domain.Payment, error) {
	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		if direct == "" {
			return nil, ErrNoPixCode
		}
		return &domain.Payment{PixCode: direct}, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	payment := domain.Payment{PixCode: firstString(fields, "payload")}

	tx := fields
	if inner, ok := fields["transaction"].(map[string]interface{}); ok {
		tx = inner
	} else if inner, ok := fields["data"].(map[string]interface{}); ok {
		tx = inner
	}

	payment.TransactionID = firstString(tx, "id", "transactionId", "providerReference")
	payment.Status = firstString(tx, "status")
	payment.AmountCents = amountCents(tx)

	if meta, ok := tx["metadata"].(map[string]interface{}); ok {
		if pix, ok := meta["pix"].(map[string]interface{}); ok {
			if payment.PixCode == "" {
				payment.PixCode = firstString(pix, "copyPaste", "copy_paste", "code", "payload", "qr_code_text")
			}
			payment.PixQRCode = firstString(pix, "qrCode", "qr_code", "qrCodeBase64")
			if expires := firstString(pix, "expiresAt", "expiration_date"); expires != "" {
				if ts, err := time.Parse(time.RFC3339, expires); err == nil {
					payment.ExpiresAt = ts
				}
			}
		}
		if providerRaw, ok := meta["providerRaw"].(map[string]interface{}); ok {
			payment.RedirectURL = firstString(providerRaw, "url", "checkoutUrl", "checkout_url")
		}
	}
	if payment.RedirectURL == "" {
		payment.RedirectURL = firstString(tx, "url", "checkoutUrl")
	}

	if method == domain.PaymentPix && payment.PixCode == "" {
		return nil, ErrNoPixCode
	}
	return &payment, nil
}

// amountCents prefers an explicit cents field and otherwise converts a
// decimal reais amount.
func amountCents(fields map[string]interface{}) int64 {
	for _, key := range []string{"amountCents", "amount_cents"} {
		if v, ok := fields[key].(float64); ok {
			return int64(v)
		}
	}
	if v, ok := fields["amount"].(float64); ok {
		return int64(math.Round(v * 100))
	}
	return 0
}

// firstString returns the first non-empty string among the candidate
// keys. The candidate order is the contract: earlier keys win.
func firstString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
