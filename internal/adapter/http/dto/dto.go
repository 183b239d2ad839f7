package dto

import (
	"github.com/shopspring/decimal"
)

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	OwnerKind string `json:"owner_kind" binding:"required,oneof=CUSTOMER BUSINESS BUSINESS_LOCATION PLATFORM"`
	OwnerID   string `json:"owner_id" binding:"required,uuid"`
}

// MovementRequest is the request body for deposits and withdrawals.
type MovementRequest struct {
	OwnerKind      string          `json:"owner_kind" binding:"required,oneof=CUSTOMER BUSINESS BUSINESS_LOCATION PLATFORM"`
	OwnerID        string          `json:"owner_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Description    string          `json:"description" binding:"max=255"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,safe_key,max=100"`
}

// SetActiveRequest toggles a wallet's active flag.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// TransferRequest is the request body for wallet-to-wallet transfers.
type TransferRequest struct {
	FromOwnerKind  string          `json:"from_owner_kind" binding:"required,oneof=CUSTOMER BUSINESS BUSINESS_LOCATION PLATFORM"`
	FromOwnerID    string          `json:"from_owner_id" binding:"required,uuid"`
	ToOwnerKind    string          `json:"to_owner_kind" binding:"required,oneof=CUSTOMER BUSINESS BUSINESS_LOCATION PLATFORM"`
	ToOwnerID      string          `json:"to_owner_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Description    string          `json:"description" binding:"max=255"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,safe_key,max=100"`
}

// SettlementRequest is the request body for settlements and holds.
type SettlementRequest struct {
	CustomerID     string          `json:"customer_id" binding:"required,uuid"`
	LocationID     string          `json:"location_id" binding:"required,uuid"`
	GrossAmount    decimal.Decimal `json:"gross_amount" binding:"required"`
	SubjectKind    *string         `json:"subject_kind" binding:"omitempty,oneof=BOOKING ORDER"`
	SubjectID      *string         `json:"subject_id" binding:"omitempty,uuid"`
	Description    string          `json:"description" binding:"max=255"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,safe_key,max=100"`
}

// CreateBookingRequest is the request body for booking creation.
type CreateBookingRequest struct {
	CustomerID     string          `json:"customer_id" binding:"required,uuid"`
	LocationID     string          `json:"location_id" binding:"required,uuid"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"required"`
	PaymentPercent int             `json:"payment_percent" binding:"required,oneof=20 50 100"`
	ServiceDate    string          `json:"service_date" binding:"required"` // RFC 3339
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,safe_key,max=100"`
}

// FinalizeBookingRequest is the request body for cash finalization.
type FinalizeBookingRequest struct {
	CashAmount decimal.Decimal `json:"cash_amount"`
}

// CancelBookingRequest is the request body for booking cancellation.
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// CreateBusinessRequest is the request body for business registration.
type CreateBusinessRequest struct {
	Name           string           `json:"name" binding:"required,min=1,max=100"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// CreateLocationRequest is the request body for adding a location.
type CreateLocationRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// WalletResponse is the wallet representation returned to clients.
type WalletResponse struct {
	ID        string          `json:"id"`
	OwnerKind string          `json:"owner_kind"`
	OwnerID   string          `json:"owner_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	IsActive  bool            `json:"is_active"`
	CreatedAt string          `json:"created_at"`
}

// TransactionResponse is the ledger entry representation returned to clients.
type TransactionResponse struct {
	ID                   string          `json:"id"`
	WalletID             string          `json:"wallet_id"`
	WalletKind           string          `json:"wallet_kind"`
	Type                 string          `json:"type"`
	Amount               decimal.Decimal `json:"amount"`
	Status               string          `json:"status"`
	Reference            string          `json:"reference"`
	SubjectKind          *string         `json:"subject_kind,omitempty"`
	SubjectID            *string         `json:"subject_id,omitempty"`
	RelatedTransactionID *string         `json:"related_transaction_id,omitempty"`
	Description          string          `json:"description,omitempty"`
	CreatedAt            string          `json:"created_at"`
}

// TransactionListResponse wraps a paginated ledger listing.
type TransactionListResponse struct {
	Items  []TransactionResponse `json:"items"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// CheckFundsResponse reports whether a wallet can cover an amount.
type CheckFundsResponse struct {
	Sufficient bool            `json:"sufficient"`
	Amount     decimal.Decimal `json:"amount"`
}

// WalletStatisticsResponse aggregates completed wallet activity.
type WalletStatisticsResponse struct {
	WalletID         string          `json:"wallet_id"`
	Balance          decimal.Decimal `json:"balance"`
	Currency         string          `json:"currency"`
	TotalDeposited   decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn   decimal.Decimal `json:"total_withdrawn"`
	TransactionCount int64           `json:"transaction_count"`
}

// TransferResponse holds both legs of a completed transfer.
type TransferResponse struct {
	Outgoing TransactionResponse `json:"outgoing"`
	Incoming TransactionResponse `json:"incoming"`
}

// CancelResponse holds the cancelled entries and their reversals.
type CancelResponse struct {
	Cancelled []TransactionResponse `json:"cancelled"`
	Reversals []TransactionResponse `json:"reversals"`
}

// SettlementResponse holds the ledger entries produced by a settlement.
type SettlementResponse struct {
	CustomerTransaction   TransactionResponse  `json:"customer_transaction"`
	BusinessTransaction   TransactionResponse  `json:"business_transaction"`
	CommissionTransaction *TransactionResponse `json:"commission_transaction,omitempty"`
	Commission            decimal.Decimal      `json:"commission"`
	NetAmount             decimal.Decimal      `json:"net_amount"`
}

// BookingResponse is the booking representation returned to clients.
type BookingResponse struct {
	ID                 string          `json:"id"`
	Reference          string          `json:"reference"`
	CustomerID         string          `json:"customer_id"`
	BusinessLocationID string          `json:"business_location_id"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	PaymentPercent     int             `json:"payment_percent"`
	ServiceDate        string          `json:"service_date"`
	Status             string          `json:"status"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	CreatedAt          string          `json:"created_at"`
}

// BookingResultResponse pairs a booking with its ledger entries.
type BookingResultResponse struct {
	Booking      BookingResponse       `json:"booking"`
	Transactions []TransactionResponse `json:"transactions"`
}

// CancellationResponse describes the outcome of a booking cancellation.
type CancellationResponse struct {
	Booking         BookingResponse       `json:"booking"`
	RefundAmount    decimal.Decimal       `json:"refund_amount"`
	BusinessPenalty decimal.Decimal       `json:"business_penalty"`
	PlatformPenalty decimal.Decimal       `json:"platform_penalty"`
	Transactions    []TransactionResponse `json:"transactions"`
}

// BusinessResponse is the business representation returned to clients.
type BusinessResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      string          `json:"created_at"`
}

// LocationResponse is the location representation, with its wallet when
// returned from creation.
type LocationResponse struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	Name       string          `json:"name"`
	IsActive   bool            `json:"is_active"`
	Wallet     *WalletResponse `json:"wallet,omitempty"`
	CreatedAt  string          `json:"created_at"`
}
