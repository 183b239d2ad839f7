package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is applied to businesses created without an
// explicit rate (percent).
var DefaultCommissionRate = decimal.NewFromFloat(5.00)

// Business is the commission-rate owner. The marketplace takes
// CommissionRate percent of every gross amount settled for one of the
// business's locations.
type Business struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CommissionOn computes the platform's share of a gross amount, rounded
// to 2 decimal places.
func (b *Business) CommissionOn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(b.CommissionRate).Div(decimal.NewFromInt(100)).Round(2)
}

// BusinessLocation is the selling unit. Each location owns exactly one
// wallet, created eagerly when the location is created.
type BusinessLocation struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
