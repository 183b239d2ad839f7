package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	currency   string
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	currency string,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		currency:   currency,
		log:        log,
	}
}

// GetOrCreateWallet returns the owner's wallet, creating an empty active
// one on first use.
func (s *WalletServiceImpl) GetOrCreateWallet(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
	if !kind.IsValid() {
		return nil, apperror.Validation("unknown wallet owner kind")
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	now := time.Now().UTC()
	wallet = &domain.Wallet{
		ID:        uuid.New(),
		OwnerKind: kind,
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  s.currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		// A concurrent creator may have won the unique (owner_kind, owner_id) race.
		existing, getErr := s.walletRepo.GetByOwner(ctx, kind, ownerID)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_kind", string(kind)).
		Str("owner_id", ownerID.String()).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns the owner's wallet or ErrNotFound.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// Deposit credits the owner's wallet, creating it on first use.
func (s *WalletServiceImpl) Deposit(ctx context.Context, req ports.MovementRequest) (*domain.Transaction, error) {
	return s.move(ctx, req, domain.TransactionTypeDeposit)
}

// Withdraw debits the owner's wallet. Fails on insufficient funds.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, req ports.MovementRequest) (*domain.Transaction, error) {
	return s.move(ctx, req, domain.TransactionTypeWithdrawal)
}

// move implements the shared deposit/withdraw algorithm with pessimistic
// locking and two-layer idempotency.
func (s *WalletServiceImpl) move(ctx context.Context, req ports.MovementRequest, txnType domain.TransactionType) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.OwnerKind.IsValid() {
		return nil, apperror.Validation("unknown wallet owner kind")
	}

	// Idempotency is keyed per owner; skipped when the client sends no key.
	var idempKey string
	if req.IdempotencyKey != "" {
		scope := "deposit"
		if txnType == domain.TransactionTypeWithdrawal {
			scope = "withdraw"
		}
		idempKey = domain.BuildIdempotencyKey(scope, req.OwnerID, req.IdempotencyKey)

		if cached, err := s.checkIdempotency(ctx, idempKey); err != nil {
			return nil, err
		} else if cached != nil {
			return cached, nil
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, dbTx, req.OwnerKind, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		if txnType == domain.TransactionTypeWithdrawal {
			return nil, apperror.ErrNotFound("wallet")
		}
		// First deposit provisions the wallet inside the same unit of work.
		now := time.Now().UTC()
		wallet = &domain.Wallet{
			ID:        uuid.New(),
			OwnerKind: req.OwnerKind,
			OwnerID:   req.OwnerID,
			Balance:   decimal.Zero,
			Currency:  s.currency,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.walletRepo.CreateInTx(ctx, dbTx, wallet); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
	}
	if err := requireActive(wallet); err != nil {
		return nil, err
	}

	prefix := "DEP"
	if txnType == domain.TransactionTypeWithdrawal {
		prefix = "WDR"
	}
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletKind:  wallet.OwnerKind,
		WalletID:    wallet.ID,
		Type:        txnType,
		Amount:      req.Amount,
		Status:      domain.TransactionStatusCompleted,
		Reference:   newReference(prefix),
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallet, txn); err != nil {
		return nil, err
	}

	respJSON, err := json.Marshal(txn)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if idempKey != "" {
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:           idempKey,
			TransactionID: txn.ID,
			ResponseJSON:  respJSON,
			CreatedAt:     now,
		}); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("txn_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Str("type", string(txnType)).
		Str("amount", req.Amount.String()).
		Msg("wallet movement completed")

	return txn, nil
}

// CheckFunds reports whether the owner's wallet could cover the amount.
// A missing wallet simply cannot cover anything.
func (s *WalletServiceImpl) CheckFunds(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if !amount.IsPositive() {
		return false, apperror.ErrInvalidAmount()
	}
	wallet, err := s.walletRepo.GetByOwner(ctx, kind, ownerID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil || !wallet.IsActive {
		return false, nil
	}
	return wallet.HasSufficientFunds(amount), nil
}

// SetWalletActive toggles the wallet's active flag. Deactivated wallets
// reject all movements but remain readable.
func (s *WalletServiceImpl) SetWalletActive(ctx context.Context, id uuid.UUID, active bool) error {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	if err := s.walletRepo.SetActive(ctx, id, active); err != nil {
		return apperror.InternalError(fmt.Errorf("set wallet active: %w", err))
	}

	s.log.Info().
		Str("wallet_id", id.String()).
		Bool("active", active).
		Msg("wallet active flag changed")

	return nil
}

// GetWalletStatistics aggregates completed activity for a wallet.
func (s *WalletServiceImpl) GetWalletStatistics(ctx context.Context, id uuid.UUID) (*ports.WalletStatistics, error) {
	wallet, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	deposited, err := s.txnRepo.SumForWallet(ctx, id, domain.TransactionTypeDeposit, domain.TransactionStatusCompleted)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum deposits: %w", err))
	}
	withdrawn, err := s.txnRepo.SumForWallet(ctx, id, domain.TransactionTypeWithdrawal, domain.TransactionStatusCompleted)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum withdrawals: %w", err))
	}
	_, total, err := s.txnRepo.List(ctx, ports.TransactionListParams{WalletID: id, Limit: 1})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count transactions: %w", err))
	}

	return &ports.WalletStatistics{
		WalletID:         id,
		Balance:          wallet.Balance,
		Currency:         wallet.Currency,
		TotalDeposited:   deposited,
		TotalWithdrawn:   withdrawn,
		TransactionCount: total,
	}, nil
}

// checkIdempotency runs the Redis then Postgres idempotency layers.
func (s *WalletServiceImpl) checkIdempotency(ctx context.Context, key string) (*domain.Transaction, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalTransaction(cached)
	}

	idempLog, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return unmarshalTransaction(idempLog.ResponseJSON)
	}
	return nil, nil
}

// unmarshalTransaction deserializes a cached ledger entry.
func unmarshalTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached txn: %w", err))
	}
	return txn, nil
}
