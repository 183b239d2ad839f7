package ports

import (
	"context"
	"time"

	"marketplace-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBTransactor abstracts database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletRepository manages wallet persistence.
// Methods taking a pgx.Tx participate in a caller-managed transaction;
// the ForUpdate variants acquire a row lock (SELECT ... FOR UPDATE).
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	CreateInTx(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// TransactionListParams holds filters for ledger queries.
type TransactionListParams struct {
	WalletID uuid.UUID
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// TransactionRepository manages the append-only ledger.
// Ledger rows are never deleted; state changes go through UpdateStatus
// and reversals are recorded as new entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID uuid.UUID) ([]domain.Transaction, error)
	SumForWallet(ctx context.Context, walletID uuid.UUID, txnType domain.TransactionType, status domain.TransactionStatus) (decimal.Decimal, error)
}

// BookingRepository manages booking persistence.
type BookingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	Update(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error
}

// BusinessRepository manages businesses and their locations.
type BusinessRepository interface {
	CreateBusiness(ctx context.Context, business *domain.Business) error
	GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	CreateLocation(ctx context.Context, tx pgx.Tx, location *domain.BusinessLocation) error
	GetLocation(ctx context.Context, id uuid.UUID) (*domain.BusinessLocation, error)
	GetBusinessForLocation(ctx context.Context, locationID uuid.UUID) (*domain.Business, error)
}

// IdempotencyRepository is the durable idempotency layer (slow path).
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
}
