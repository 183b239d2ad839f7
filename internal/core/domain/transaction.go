package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal  TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer    TransactionType = "TRANSFER"
	TransactionTypePayment     TransactionType = "PAYMENT"
	TransactionTypeCashPayment TransactionType = "CASH_PAYMENT"
	TransactionTypeHold        TransactionType = "HOLD"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeCommission  TransactionType = "COMMISSION"
)

// TransactionStatus represents the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// SubjectKind discriminates the business object a ledger entry is linked to.
type SubjectKind string

const (
	SubjectKindBooking SubjectKind = "BOOKING"
	SubjectKindOrder   SubjectKind = "ORDER"
)

// Direction of a balance movement relative to the entry's wallet.
type Direction int

const (
	DirectionNone   Direction = 0  // no wallet movement (cash is out-of-band)
	DirectionCredit Direction = 1  // balance increases
	DirectionDebit  Direction = -1 // balance decreases
)

// Transfer leg orientation is encoded in the server-generated reference
// suffix; amounts are always positive and carry no direction.
const (
	TransferRefSuffixOut = "-OUT"
	TransferRefSuffixIn  = "-IN"
)

// Transaction is an immutable, typed, append-only record of a single
// balance movement. Amount is always > 0; direction is implied by the
// entry type and the owning wallet's kind, never by sign.
type Transaction struct {
	ID                   uuid.UUID         `json:"id"`
	WalletKind           OwnerKind         `json:"wallet_kind"`
	WalletID             uuid.UUID         `json:"wallet_id"`
	Type                 TransactionType   `json:"type"`
	Amount               decimal.Decimal   `json:"amount"`
	Status               TransactionStatus `json:"status"`
	Reference            string            `json:"reference"`
	SubjectKind          *SubjectKind      `json:"subject_kind,omitempty"`
	SubjectID            *uuid.UUID        `json:"subject_id,omitempty"`
	RelatedTransactionID *uuid.UUID        `json:"related_transaction_id,omitempty"`
	Description          string            `json:"description"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// IsTerminal returns true once the entry may no longer change except by a
// new, linked reversing entry.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled
}

// IsCancellable returns true if the entry can be reversed.
func (t *Transaction) IsCancellable() bool {
	return t.Status == TransactionStatusCompleted
}

// Direction derives the balance effect from the entry type and the wallet
// it belongs to. PAYMENT and HOLD debit customer wallets and credit
// business-side wallets (they carry the net share of a settlement there).
func (t *Transaction) Direction() Direction {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeRefund, TransactionTypeCommission:
		return DirectionCredit
	case TransactionTypeWithdrawal:
		return DirectionDebit
	case TransactionTypeCashPayment:
		return DirectionNone
	case TransactionTypePayment, TransactionTypeHold:
		if t.WalletKind == OwnerKindCustomer {
			return DirectionDebit
		}
		return DirectionCredit
	case TransactionTypeTransfer:
		if isTransferOut(t.Reference) {
			return DirectionDebit
		}
		return DirectionCredit
	}
	return DirectionNone
}

func isTransferOut(reference string) bool {
	return len(reference) > len(TransferRefSuffixOut) &&
		reference[len(reference)-len(TransferRefSuffixOut):] == TransferRefSuffixOut
}
