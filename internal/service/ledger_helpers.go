package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const idempotencyTTL = 24 * time.Hour

// walletRef identifies a wallet to lock in a multi-wallet unit of work.
type walletRef struct {
	kind    domain.OwnerKind
	ownerID uuid.UUID
}

// sortWalletRefs orders refs into the canonical lock acquisition order:
// owner kind rank first, owner UUID as tiebreaker. Every multi-wallet
// operation locks in this order to prevent deadlocks.
func sortWalletRefs(refs []walletRef) {
	sort.Slice(refs, func(i, j int) bool {
		ri, rj := refs[i].kind.LockRank(), refs[j].kind.LockRank()
		if ri != rj {
			return ri < rj
		}
		return refs[i].ownerID.String() < refs[j].ownerID.String()
	})
}

// appendEntry applies a ledger entry's balance effect to the locked wallet
// and persists both the new balance and the entry. The wallet's in-memory
// balance is updated so subsequent entries in the same unit of work see it.
func appendEntry(ctx context.Context, dbTx pgx.Tx, walletRepo ports.WalletRepository, txnRepo ports.TransactionRepository, w *domain.Wallet, txn *domain.Transaction) error {
	switch txn.Direction() {
	case domain.DirectionDebit:
		if !w.HasSufficientFunds(txn.Amount) {
			return apperror.ErrInsufficientFunds()
		}
		w.Balance = w.Balance.Sub(txn.Amount)
	case domain.DirectionCredit:
		w.Balance = w.Balance.Add(txn.Amount)
	}

	if txn.Direction() != domain.DirectionNone {
		if err := walletRepo.UpdateBalance(ctx, dbTx, w.ID, w.Balance); err != nil {
			return apperror.InternalError(fmt.Errorf("update balance: %w", err))
		}
	}
	if err := txnRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}
	return nil
}

// requireActive rejects operations on deactivated wallets.
func requireActive(w *domain.Wallet) error {
	if !w.IsActive {
		return apperror.ErrInactiveWallet()
	}
	return nil
}

// newReference generates a unique, prefixed ledger reference.
func newReference(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
