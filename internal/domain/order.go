package domain

import "time"

// DeliveryEta is the provider's distance/duration estimate for the
// current destination. It goes stale whenever the address changes.
type DeliveryEta struct {
	DistanceText string `json:"distanceText"`
	DurationText string `json:"durationText"`
}

// OrderSummary is the snapshot persisted after submission for the
// confirmation view. It is the only checkout state that must survive
// a reload.
type OrderSummary struct {
	OrderID          string        `json:"orderId"`
	OrderCode        string        `json:"orderCode"`
	PlacedAt         time.Time     `json:"placedAt"`
	Items            []CartItem    `json:"items"`
	SubtotalCents    int64         `json:"subtotalCents"`
	DeliveryFeeCents int64         `json:"deliveryFeeCents"`
	DiscountCents    int64         `json:"discountCents"`
	TotalCents       int64         `json:"totalCents"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	Payment          *Payment      `json:"payment,omitempty"`
	Customer         OrderDraft    `json:"customer"`
	Eta              *DeliveryEta  `json:"eta,omitempty"`
	Message          string        `json:"message"`
}
