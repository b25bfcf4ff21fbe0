package domain

import "strings"

// CustomerType is the "have you ordered here before" choice. The
// storefront must resolve it before personal fields are unlocked.
type CustomerType string

const (
	CustomerTypeUndeclared CustomerType = ""
	CustomerTypeExisting   CustomerType = "existing"
	CustomerTypeNew        CustomerType = "new"
)

// OrderDraft is the in-progress order data, owned exclusively by the
// checkout session. Resolvers propose merges; the session applies them.
type OrderDraft struct {
	CustomerName  string       `json:"customerName"`
	PhoneDigits   string       `json:"phoneDigits"`
	CustomerType  CustomerType `json:"customerType"`
	CEP           string       `json:"cep"`
	Street        string       `json:"street"`
	Neighborhood  string       `json:"neighborhood"`
	Pickup        bool         `json:"pickup"`
	Notes         string       `json:"notes"`
	CustomerID    string       `json:"customerId,omitempty"`
	DiscountCents int64        `json:"discountCents"`
}

// CustomerProfile is a customer record resolved from the backend or
// loaded from a cached draft.
type CustomerProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
}

// MergeProfile fills empty draft fields from the profile. Fields the
// user already typed are never overwritten; CustomerID is always
// adopted so the order links to the existing record.
func (d *OrderDraft) MergeProfile(p CustomerProfile) {
	if d.CustomerName == "" {
		d.CustomerName = p.Name
	}
	if d.PhoneDigits == "" {
		d.PhoneDigits = OnlyDigits(p.Phone)
	}
	if d.CEP == "" {
		d.CEP = OnlyDigits(p.CEP)
	}
	if d.Street == "" {
		d.Street = p.Street
	}
	if d.Neighborhood == "" {
		d.Neighborhood = p.Neighborhood
	}
	if p.ID != "" {
		d.CustomerID = p.ID
	}
}

// OnlyDigits strips everything but 0-9.
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders up-to-11 digits in the (xx) xxxxx-xxxx shape used
// on the storefront. Shorter inputs are returned partially formatted.
func FormatPhone(digits string) string {
	digits = OnlyDigits(digits)
	if len(digits) > 11 {
		digits = digits[:11]
	}
	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 2:
		return "(" + digits
	case len(digits) <= 7:
		return "(" + digits[:2] + ") " + digits[2:]
	default:
		return "(" + digits[:2] + ") " + digits[2:len(digits)-4] + "-" + digits[len(digits)-4:]
	}
}
