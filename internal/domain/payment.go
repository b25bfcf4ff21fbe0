package domain

import "time"

// PaymentMethod selects how the order is paid.
type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// RequiresArtifact reports whether the method needs a generated payment
// before the order can be submitted or handed off.
func (m PaymentMethod) RequiresArtifact() bool {
	return m == PaymentPix || m == PaymentCard
}

// Payment is the normalized artifact returned by the payment backend,
// regardless of which response shape it arrived in.
type Payment struct {
	TransactionID string    `json:"transactionId,omitempty"`
	Status        string    `json:"status,omitempty"`
	AmountCents   int64     `json:"amountCents,omitempty"`
	PixCode       string    `json:"pixCode,omitempty"`
	PixQRCode     string    `json:"pixQrCode,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
	RedirectURL   string    `json:"redirectUrl,omitempty"`
}
