package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OwnerKind discriminates who owns a wallet. Exactly one owner per wallet,
// enforced unique on (owner_kind, owner_id).
type OwnerKind string

const (
	OwnerKindCustomer         OwnerKind = "CUSTOMER"
	OwnerKindBusiness         OwnerKind = "BUSINESS"
	OwnerKindBusinessLocation OwnerKind = "BUSINESS_LOCATION"
	OwnerKindPlatform         OwnerKind = "PLATFORM"
)

// IsValid reports whether the owner kind is one of the known discriminants.
func (k OwnerKind) IsValid() bool {
	switch k {
	case OwnerKindCustomer, OwnerKindBusiness, OwnerKindBusinessLocation, OwnerKindPlatform:
		return true
	}
	return false
}

// LockRank defines the canonical lock acquisition order for multi-wallet
// operations: customer before business before location before platform.
func (k OwnerKind) LockRank() int {
	switch k {
	case OwnerKindCustomer:
		return 0
	case OwnerKindBusiness:
		return 1
	case OwnerKindBusinessLocation:
		return 2
	case OwnerKindPlatform:
		return 3
	}
	return 4
}

// Wallet is a balance-holding account owned by exactly one of
// {customer, business, business location, platform operator}.
// Balance is a fixed-point decimal and never goes negative.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	OwnerKind OwnerKind       `json:"owner_kind"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasSufficientFunds is an advisory check; callers must re-check under a
// row lock before debiting.
func (w *Wallet) HasSufficientFunds(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
