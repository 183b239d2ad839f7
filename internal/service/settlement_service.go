package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SettlementServiceImpl implements ports.SettlementService. It splits a
// customer's gross payment into a net credit for the business location
// wallet and a commission credit for the platform wallet, atomically.
type SettlementServiceImpl struct {
	walletRepo ports.WalletRepository
	txnRepo    ports.TransactionRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	calc       *CommissionCalculator
	operatorID uuid.UUID
	currency   string
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. operatorID is
// the configured platform operator; settlements that owe a commission fail
// when it is unset rather than dropping the platform's share.
func NewSettlementService(
	walletRepo ports.WalletRepository,
	txnRepo ports.TransactionRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	calc *CommissionCalculator,
	operatorID uuid.UUID,
	currency string,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		walletRepo: walletRepo,
		txnRepo:    txnRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		calc:       calc,
		operatorID: operatorID,
		currency:   currency,
		log:        log,
	}
}

// SettlePayment debits the customer for the gross amount and credits the
// business (net) and platform (commission) wallets as COMPLETED entries.
func (s *SettlementServiceImpl) SettlePayment(ctx context.Context, req ports.SettlementRequest) (*ports.SettlementResult, error) {
	return s.settle(ctx, req, domain.TransactionTypePayment, "settle", "PAY")
}

// CreateHold reserves the gross amount as HOLD entries: the customer is
// debited and the business is credited its net share provisionally, the
// platform takes its commission. A later finalize or cancel resolves it.
func (s *SettlementServiceImpl) CreateHold(ctx context.Context, req ports.SettlementRequest) (*ports.SettlementResult, error) {
	return s.settle(ctx, req, domain.TransactionTypeHold, "hold", "HOLD")
}

func (s *SettlementServiceImpl) settle(ctx context.Context, req ports.SettlementRequest, legType domain.TransactionType, scope, refPrefix string) (*ports.SettlementResult, error) {
	split, err := s.calc.Split(ctx, req.LocationID, req.GrossAmount)
	if err != nil {
		return nil, err
	}
	if s.operatorID == uuid.Nil {
		return nil, apperror.ErrSettlementFailure(errors.New("platform operator not configured"))
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		if req.Subject != nil {
			idempKey = domain.BuildSubjectIdempotencyKey(scope, req.Subject.Kind, req.Subject.ID, req.IdempotencyKey)
		} else {
			idempKey = domain.BuildIdempotencyKey(scope, req.CustomerID, req.IdempotencyKey)
		}
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

	wallets, err := s.lockSettlementWallets(ctx, dbTx, req.CustomerID, req.LocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	base := newReference(refPrefix)
	result, err := s.appendSettlementLegs(ctx, dbTx, wallets, settlementLegs{
		legType:    legType,
		baseRef:    base,
		gross:      req.GrossAmount,
		net:        split.Net,
		commission: split.Commission,
		subject:    req.Subject,
		desc:       req.Description,
		now:        now,
	})
	if err != nil {
		return nil, err
	}
	result.Commission = split.Commission
	result.NetAmount = split.Net

	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if idempKey != "" {
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:           idempKey,
			TransactionID: result.CustomerTxn.ID,
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
		Str("type", string(legType)).
		Str("gross", req.GrossAmount.String()).
		Str("commission", split.Commission.String()).
		Msg("settlement completed")

	return result, nil
}

// settlementWallets holds the three locked parties of a settlement.
type settlementWallets struct {
	customer *domain.Wallet
	location *domain.Wallet
	platform *domain.Wallet
}

// lockSettlementWallets locks the customer, location, and platform wallets
// in canonical order. The customer wallet must already exist; location and
// platform wallets are provisioned inside the unit of work if missing.
func (s *SettlementServiceImpl) lockSettlementWallets(ctx context.Context, dbTx pgx.Tx, customerID, locationID uuid.UUID) (*settlementWallets, error) {
	refs := []walletRef{
		{kind: domain.OwnerKindCustomer, ownerID: customerID},
		{kind: domain.OwnerKindBusinessLocation, ownerID: locationID},
		{kind: domain.OwnerKindPlatform, ownerID: s.operatorID},
	}
	sortWalletRefs(refs)

	out := &settlementWallets{}
	for _, ref := range refs {
		w, err := s.walletRepo.GetByOwnerForUpdate(ctx, dbTx, ref.kind, ref.ownerID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if w == nil {
			if ref.kind == domain.OwnerKindCustomer {
				return nil, apperror.ErrNotFound("customer wallet")
			}
			now := time.Now().UTC()
			w = &domain.Wallet{
				ID:        uuid.New(),
				OwnerKind: ref.kind,
				OwnerID:   ref.ownerID,
				Balance:   decimal.Zero,
				Currency:  s.currency,
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.walletRepo.CreateInTx(ctx, dbTx, w); err != nil {
				return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
			}
		}
		if err := requireActive(w); err != nil {
			return nil, err
		}
		switch ref.kind {
		case domain.OwnerKindCustomer:
			out.customer = w
		case domain.OwnerKindBusinessLocation:
			out.location = w
		case domain.OwnerKindPlatform:
			out.platform = w
		}
	}

	if out.customer.Currency != out.location.Currency || out.customer.Currency != out.platform.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}
	return out, nil
}

// settlementLegs describes the three entries of one settlement.
type settlementLegs struct {
	legType    domain.TransactionType
	baseRef    string
	gross      decimal.Decimal
	net        decimal.Decimal
	commission decimal.Decimal
	subject    *ports.SubjectRef
	desc       string
	now        time.Time
}

// appendSettlementLegs writes the customer debit, the business net credit,
// and (unless it rounds to zero) the platform commission credit. All three
// share the base reference stem and link back to the customer leg.
func (s *SettlementServiceImpl) appendSettlementLegs(ctx context.Context, dbTx pgx.Tx, w *settlementWallets, legs settlementLegs) (*ports.SettlementResult, error) {
	var subjectKind *domain.SubjectKind
	var subjectID *uuid.UUID
	if legs.subject != nil {
		subjectKind = &legs.subject.Kind
		subjectID = &legs.subject.ID
	}

	customerTxn := &domain.Transaction{
		ID:          uuid.New(),
		WalletKind:  w.customer.OwnerKind,
		WalletID:    w.customer.ID,
		Type:        legs.legType,
		Amount:      legs.gross,
		Status:      domain.TransactionStatusCompleted,
		Reference:   legs.baseRef,
		SubjectKind: subjectKind,
		SubjectID:   subjectID,
		Description: legs.desc,
		CreatedAt:   legs.now,
		UpdatedAt:   legs.now,
	}
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, w.customer, customerTxn); err != nil {
		return nil, err
	}

	businessTxn := &domain.Transaction{
		ID:                   uuid.New(),
		WalletKind:           w.location.OwnerKind,
		WalletID:             w.location.ID,
		Type:                 legs.legType,
		Amount:               legs.net,
		Status:               domain.TransactionStatusCompleted,
		Reference:            legs.baseRef + "-NET",
		SubjectKind:          subjectKind,
		SubjectID:            subjectID,
		RelatedTransactionID: &customerTxn.ID,
		Description:          legs.desc,
		CreatedAt:            legs.now,
		UpdatedAt:            legs.now,
	}
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, w.location, businessTxn); err != nil {
		return nil, err
	}

	result := &ports.SettlementResult{CustomerTxn: customerTxn, BusinessTxn: businessTxn}
	if legs.commission.IsPositive() {
		commissionTxn := &domain.Transaction{
			ID:                   uuid.New(),
			WalletKind:           w.platform.OwnerKind,
			WalletID:             w.platform.ID,
			Type:                 domain.TransactionTypeCommission,
			Amount:               legs.commission,
			Status:               domain.TransactionStatusCompleted,
			Reference:            legs.baseRef + "-COM",
			SubjectKind:          subjectKind,
			SubjectID:            subjectID,
			RelatedTransactionID: &customerTxn.ID,
			Description:          legs.desc,
			CreatedAt:            legs.now,
			UpdatedAt:            legs.now,
		}
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, w.platform, commissionTxn); err != nil {
			return nil, err
		}
		result.CommissionTxn = commissionTxn
	}
	return result, nil
}

// checkIdempotency runs the Redis then Postgres idempotency layers for
// settlement-shaped cached responses.
func (s *SettlementServiceImpl) checkIdempotency(ctx context.Context, key string) (*ports.SettlementResult, error) {
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

	result := &ports.SettlementResult{}
	if err := json.Unmarshal(cached, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached settlement: %w", err))
	}
	return result, nil
}
