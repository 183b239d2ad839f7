package ports

import (
	"context"
	"time"

	"marketplace-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SubjectRef ties a settlement or hold to the entity it pays for.
type SubjectRef struct {
	Kind domain.SubjectKind
	ID   uuid.UUID
}

// --- Service Ports (Business Logic) ---

// MovementRequest holds validated input for a deposit or withdrawal.
type MovementRequest struct {
	OwnerKind      domain.OwnerKind
	OwnerID        uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// WalletStatistics aggregates completed ledger activity for a wallet.
type WalletStatistics struct {
	WalletID         uuid.UUID
	Balance          decimal.Decimal
	Currency         string
	TotalDeposited   decimal.Decimal
	TotalWithdrawn   decimal.Decimal
	TransactionCount int64
}

// WalletService defines wallet lifecycle and direct money movement.
type WalletService interface {
	GetOrCreateWallet(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error)
	GetWallet(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error)
	Deposit(ctx context.Context, req MovementRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req MovementRequest) (*domain.Transaction, error)
	CheckFunds(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID, amount decimal.Decimal) (bool, error)
	SetWalletActive(ctx context.Context, id uuid.UUID, active bool) error
	GetWalletStatistics(ctx context.Context, id uuid.UUID) (*WalletStatistics, error)
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
type TransferRequest struct {
	FromKind       domain.OwnerKind
	FromOwnerID    uuid.UUID
	ToKind         domain.OwnerKind
	ToOwnerID      uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransferResult holds both legs of a completed transfer.
type TransferResult struct {
	Outgoing *domain.Transaction
	Incoming *domain.Transaction
}

// CancelResult holds the cancelled entry and the reversing entries
// appended to undo its balance effects.
type CancelResult struct {
	Cancelled []*domain.Transaction
	Reversals []*domain.Transaction
}

// LedgerService defines ledger queries, transfers, and cancellation.
type LedgerService interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	ListForWallet(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	CancelTransaction(ctx context.Context, id uuid.UUID) (*CancelResult, error)
}

// SettlementRequest holds validated input for settling a customer payment
// against a business location.
type SettlementRequest struct {
	CustomerID     uuid.UUID
	LocationID     uuid.UUID
	GrossAmount    decimal.Decimal
	Subject        *SubjectRef
	Description    string
	IdempotencyKey string
}

// SettlementResult holds the ledger entries produced by a settlement.
// CommissionTxn is nil when the commission rounds to zero.
type SettlementResult struct {
	CustomerTxn   *domain.Transaction
	BusinessTxn   *domain.Transaction
	CommissionTxn *domain.Transaction
	Commission    decimal.Decimal
	NetAmount     decimal.Decimal
}

// SettlementService splits customer payments between the business
// location wallet and the platform commission wallet.
type SettlementService interface {
	SettlePayment(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
	CreateHold(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
}

// CreateBookingRequest holds validated input for booking creation.
type CreateBookingRequest struct {
	CustomerID     uuid.UUID
	LocationID     uuid.UUID
	TotalAmount    decimal.Decimal
	PaymentPercent int
	ServiceDate    time.Time
	IdempotencyKey string
}

// BookingResult pairs a booking with the ledger entries it produced.
type BookingResult struct {
	Booking      *domain.Booking
	Transactions []*domain.Transaction
}

// CancellationResult describes the outcome of a booking cancellation.
type CancellationResult struct {
	Booking         *domain.Booking
	RefundAmount    decimal.Decimal
	BusinessPenalty decimal.Decimal
	PlatformPenalty decimal.Decimal
	Transactions    []*domain.Transaction
}

// BookingService defines the booking payment lifecycle: partial payment
// at creation, confirmation on approval or cash finalization, refunds
// with penalties on cancellation.
type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingResult, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, []domain.Transaction, error)
	ApproveBooking(ctx context.Context, id uuid.UUID) (*BookingResult, error)
	FinalizeWithCash(ctx context.Context, id uuid.UUID, cashAmount decimal.Decimal) (*BookingResult, error)
	CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*CancellationResult, error)
}

// BusinessService manages businesses and locations. Creating a location
// also provisions its wallet so settlements never race wallet creation.
type BusinessService interface {
	CreateBusiness(ctx context.Context, name string, commissionRate *decimal.Decimal) (*domain.Business, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	CreateLocation(ctx context.Context, businessID uuid.UUID, name string) (*domain.BusinessLocation, *domain.Wallet, error)
}
