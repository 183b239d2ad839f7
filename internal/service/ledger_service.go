package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		log:        log,
	}
}

// GetTransaction fetches a ledger entry by ID.
func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// FindByReference fetches a ledger entry by its unique reference.
func (s *LedgerServiceImpl) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	txn, err := s.txnRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find by reference: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// ListForWallet fetches a wallet's ledger entries with filters.
func (s *LedgerServiceImpl) ListForWallet(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	txns, total, err := s.txnRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// Transfer atomically moves money between two wallets as a pair of
// TRANSFER legs sharing a reference stem.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.FromKind.IsValid() || !req.ToKind.IsValid() {
		return nil, apperror.Validation("unknown wallet owner kind")
	}
	if req.FromKind == req.ToKind && req.FromOwnerID == req.ToOwnerID {
		return nil, apperror.Validation("cannot transfer to the same wallet")
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey("transfer", req.FromOwnerID, req.IdempotencyKey)

		if cached, err := s.checkIdempotencyResult(ctx, idempKey); err != nil {
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

	fromRef := walletRef{kind: req.FromKind, ownerID: req.FromOwnerID}
	toRef := walletRef{kind: req.ToKind, ownerID: req.ToOwnerID}
	refs := []walletRef{fromRef, toRef}
	sortWalletRefs(refs)

	wallets := make(map[walletRef]*domain.Wallet, len(refs))
	for _, ref := range refs {
		w, err := s.walletRepo.GetByOwnerForUpdate(ctx, dbTx, ref.kind, ref.ownerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		wallets[ref] = w
	}

	from, to := wallets[fromRef], wallets[toRef]
	if from == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if to == nil {
		// Recipients get their wallet on first use, in the sender's
		// currency, inside the same unit of work.
		now := time.Now().UTC()
		to = &domain.Wallet{
			ID:        uuid.New(),
			OwnerKind: req.ToKind,
			OwnerID:   req.ToOwnerID,
			Balance:   decimal.Zero,
			Currency:  from.Currency,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.walletRepo.CreateInTx(ctx, dbTx, to); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
		}
	}

	if err := requireActive(from); err != nil {
		return nil, err
	}
	if err := requireActive(to); err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	base := newReference("TRF")
	now := time.Now().UTC()
	outID, inID := uuid.New(), uuid.New()

	outgoing := &domain.Transaction{
		ID:                   outID,
		WalletKind:           from.OwnerKind,
		WalletID:             from.ID,
		Type:                 domain.TransactionTypeTransfer,
		Amount:               req.Amount,
		Status:               domain.TransactionStatusCompleted,
		Reference:            base + domain.TransferRefSuffixOut,
		RelatedTransactionID: &inID,
		Description:          req.Description,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	incoming := &domain.Transaction{
		ID:                   inID,
		WalletKind:           to.OwnerKind,
		WalletID:             to.ID,
		Type:                 domain.TransactionTypeTransfer,
		Amount:               req.Amount,
		Status:               domain.TransactionStatusCompleted,
		Reference:            base + domain.TransferRefSuffixIn,
		RelatedTransactionID: &outID,
		Description:          req.Description,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, from, outgoing); err != nil {
		return nil, err
	}
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, to, incoming); err != nil {
		return nil, err
	}

	result := &ports.TransferResult{Outgoing: outgoing, Incoming: incoming}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if idempKey != "" {
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:           idempKey,
			TransactionID: outID,
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
		Str("reference", base).
		Str("from_wallet", from.ID.String()).
		Str("to_wallet", to.ID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")

	return result, nil
}

// CancelTransaction reverses a COMPLETED ledger entry: it appends a linked
// reversing entry restoring the balance effect and marks the original
// CANCELLED. Cancelling one leg of a transfer cancels both legs.
func (s *LedgerServiceImpl) CancelTransaction(ctx context.Context, id uuid.UUID) (*ports.CancelResult, error) {
	txn, err := s.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	if !txn.IsCancellable() {
		return nil, apperror.ErrInvalidStateTransition("only COMPLETED transactions can be cancelled")
	}

	originals := []*domain.Transaction{txn}
	if txn.Type == domain.TransactionTypeTransfer {
		other, err := s.transferCounterpart(ctx, txn)
		if err != nil {
			return nil, err
		}
		originals = append(originals, other)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock wallets in canonical order, then re-check entries under lock so
	// concurrent cancels of the same entry cannot both proceed.
	wallets := make(map[uuid.UUID]*domain.Wallet, len(originals))
	var refs []walletRef
	for _, orig := range originals {
		// ownerID carries the wallet ID here; ordering only needs the pair.
		refs = append(refs, walletRef{kind: orig.WalletKind, ownerID: orig.WalletID})
	}
	sortWalletRefs(refs)
	for _, ref := range refs {
		if _, done := wallets[ref.ownerID]; done {
			continue
		}
		w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, ref.ownerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		wallets[w.ID] = w
	}

	now := time.Now().UTC()
	result := &ports.CancelResult{}
	for _, orig := range originals {
		locked, err := s.txnRepo.GetByIDForUpdate(ctx, dbTx, orig.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
		}
		if locked == nil || !locked.IsCancellable() {
			return nil, apperror.ErrInvalidStateTransition("only COMPLETED transactions can be cancelled")
		}

		wallet := wallets[locked.WalletID]
		if reversal := reversalFor(locked, now); reversal != nil {
			if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallet, reversal); err != nil {
				return nil, err
			}
			result.Reversals = append(result.Reversals, reversal)
		}
		if err := s.txnRepo.UpdateStatus(ctx, dbTx, locked.ID, domain.TransactionStatusCancelled); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("cancel transaction: %w", err))
		}
		locked.Status = domain.TransactionStatusCancelled
		result.Cancelled = append(result.Cancelled, locked)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("txn_id", id.String()).
		Int("reversals", len(result.Reversals)).
		Msg("transaction cancelled")

	return result, nil
}

// transferCounterpart resolves the other leg of a transfer pair, via the
// related id when set, otherwise via the sibling reference suffix.
func (s *LedgerServiceImpl) transferCounterpart(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.RelatedTransactionID != nil {
		other, err := s.txnRepo.GetByID(ctx, *txn.RelatedTransactionID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get transfer counterpart: %w", err))
		}
		if other != nil {
			return other, nil
		}
	}

	var otherRef string
	switch {
	case strings.HasSuffix(txn.Reference, domain.TransferRefSuffixOut):
		otherRef = strings.TrimSuffix(txn.Reference, domain.TransferRefSuffixOut) + domain.TransferRefSuffixIn
	case strings.HasSuffix(txn.Reference, domain.TransferRefSuffixIn):
		otherRef = strings.TrimSuffix(txn.Reference, domain.TransferRefSuffixIn) + domain.TransferRefSuffixOut
	default:
		return nil, apperror.ErrInvalidStateTransition("transfer leg has no resolvable counterpart")
	}

	other, err := s.txnRepo.GetByReference(ctx, otherRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transfer counterpart: %w", err))
	}
	if other == nil {
		return nil, apperror.ErrInvalidStateTransition("transfer leg has no resolvable counterpart")
	}
	return other, nil
}

// reversalFor builds the linked reversing entry undoing an original's
// balance effect: debits are restored with a REFUND, credits are clawed
// back with a WITHDRAWAL. Entries without movement need no reversal.
func reversalFor(orig *domain.Transaction, now time.Time) *domain.Transaction {
	var revType domain.TransactionType
	switch orig.Direction() {
	case domain.DirectionDebit:
		revType = domain.TransactionTypeRefund
	case domain.DirectionCredit:
		revType = domain.TransactionTypeWithdrawal
	default:
		return nil
	}

	origID := orig.ID
	return &domain.Transaction{
		ID:                   uuid.New(),
		WalletKind:           orig.WalletKind,
		WalletID:             orig.WalletID,
		Type:                 revType,
		Amount:               orig.Amount,
		Status:               domain.TransactionStatusCompleted,
		Reference:            "REV-" + orig.Reference,
		SubjectKind:          orig.SubjectKind,
		SubjectID:            orig.SubjectID,
		RelatedTransactionID: &origID,
		Description:          "Reversal of " + orig.Reference,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// checkIdempotencyResult runs the two idempotency layers for operations
// whose cached payload is a TransferResult.
func (s *LedgerServiceImpl) checkIdempotencyResult(ctx context.Context, key string) (*ports.TransferResult, error) {
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached == nil {
		idempLog, err := s.idempRepo.Get(ctx, key)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if idempLog == nil {
			return nil, nil
		}
		cached = idempLog.ResponseJSON
	}

	result := &ports.TransferResult{}
	if err := json.Unmarshal(cached, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached transfer: %w", err))
	}
	return result, nil
}
