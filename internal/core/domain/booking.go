package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the payment-driven lifecycle of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Upfront payment percentages a customer may select when booking.
const (
	PaymentPercentTwenty  = 20
	PaymentPercentFifty   = 50
	PaymentPercentHundred = 100
)

// FreeCancellationWindow is the minimum lead time before the service date
// for a penalty-free cancellation.
const FreeCancellationWindow = 24 * time.Hour

// Cancellation penalty split applied inside the window.
var (
	BusinessPenaltyRate = decimal.NewFromFloat(0.09)
	PlatformPenaltyRate = decimal.NewFromFloat(0.01)
)

// Booking is the ledger's projection of the domain booking/order entity:
// only the fields the wallet system needs. Domain modules own the rest.
type Booking struct {
	ID                 uuid.UUID       `json:"id"`
	Reference          string          `json:"reference"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	BusinessLocationID uuid.UUID       `json:"business_location_id"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	PaymentPercent     int             `json:"payment_percent"`
	ServiceDate        time.Time       `json:"service_date"`
	Status             BookingStatus   `json:"status"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ValidPaymentPercent reports whether p is a selectable upfront percentage.
func ValidPaymentPercent(p int) bool {
	return p == PaymentPercentTwenty || p == PaymentPercentFifty || p == PaymentPercentHundred
}

// AmountToPay returns the upfront amount for the selected percentage,
// rounded to 2 decimal places.
func (b *Booking) AmountToPay() decimal.Decimal {
	return b.TotalAmount.Mul(decimal.NewFromInt(int64(b.PaymentPercent))).
		Div(decimal.NewFromInt(100)).Round(2)
}

// PenaltyFree reports whether cancelling at "now" avoids penalties.
func (b *Booking) PenaltyFree(now time.Time) bool {
	return b.ServiceDate.Sub(now) >= FreeCancellationWindow
}
