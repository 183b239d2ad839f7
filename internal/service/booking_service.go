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

// BookingServiceImpl implements ports.BookingService: the hold at booking
// time, the refund-then-repay finalization, and penalty-bearing
// cancellation. It shares the settlement engine's locking and leg-writing
// machinery so every path conserves money the same way.
type BookingServiceImpl struct {
	bookingRepo ports.BookingRepository
	txnRepo     ports.TransactionRepository
	walletRepo  ports.WalletRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	transactor  ports.DBTransactor
	calc        *CommissionCalculator
	settlement  *SettlementServiceImpl
	log         zerolog.Logger
}

// NewBookingService creates a new BookingServiceImpl.
func NewBookingService(
	bookingRepo ports.BookingRepository,
	txnRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	calc *CommissionCalculator,
	settlement *SettlementServiceImpl,
	log zerolog.Logger,
) *BookingServiceImpl {
	return &BookingServiceImpl{
		bookingRepo: bookingRepo,
		txnRepo:     txnRepo,
		walletRepo:  walletRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		transactor:  transactor,
		calc:        calc,
		settlement:  settlement,
		log:         log,
	}
}

// CreateBooking records a PENDING booking and holds the selected upfront
// percentage from the customer's wallet in the same atomic unit.
func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req ports.CreateBookingRequest) (*ports.BookingResult, error) {
	if !req.TotalAmount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if !domain.ValidPaymentPercent(req.PaymentPercent) {
		return nil, apperror.Validation("payment percent must be 20, 50 or 100")
	}
	if req.ServiceDate.Before(time.Now().UTC()) {
		return nil, apperror.Validation("service date must be in the future")
	}
	if s.settlement.operatorID == uuid.Nil {
		return nil, apperror.ErrSettlementFailure(errors.New("platform operator not configured"))
	}

	split, err := s.calc.Split(ctx, req.LocationID, req.TotalAmount)
	if err != nil {
		return nil, err
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildIdempotencyKey("booking", req.CustomerID, req.IdempotencyKey)
		if cached, err := s.checkIdempotency(ctx, idempKey); err != nil {
			return nil, err
		} else if cached != nil {
			return cached, nil
		}
	}

	now := time.Now().UTC()
	booking := &domain.Booking{
		ID:                 uuid.New(),
		Reference:          newReference("BKG"),
		CustomerID:         req.CustomerID,
		BusinessLocationID: req.LocationID,
		TotalAmount:        req.TotalAmount,
		CommissionAmount:   split.Commission,
		PaymentPercent:     req.PaymentPercent,
		ServiceDate:        req.ServiceDate,
		Status:             domain.BookingStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	amountToPay := booking.AmountToPay()
	heldCommission := split.Business.CommissionOn(amountToPay)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.bookingRepo.Create(ctx, dbTx, booking); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create booking: %w", err))
	}

	wallets, err := s.settlement.lockSettlementWallets(ctx, dbTx, req.CustomerID, req.LocationID)
	if err != nil {
		return nil, err
	}

	subject := &ports.SubjectRef{Kind: domain.SubjectKindBooking, ID: booking.ID}
	legs, err := s.settlement.appendSettlementLegs(ctx, dbTx, wallets, settlementLegs{
		legType:    domain.TransactionTypeHold,
		baseRef:    "HOLD-" + booking.Reference,
		gross:      amountToPay,
		net:        amountToPay.Sub(heldCommission),
		commission: heldCommission,
		subject:    subject,
		desc:       fmt.Sprintf("Upfront payment (%d%%) for booking %s", req.PaymentPercent, booking.Reference),
		now:        now,
	})
	if err != nil {
		return nil, err
	}

	result := &ports.BookingResult{Booking: booking, Transactions: collectLegs(legs)}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if idempKey != "" {
		if err := s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:           idempKey,
			TransactionID: legs.CustomerTxn.ID,
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
		Str("booking_id", booking.ID.String()).
		Str("reference", booking.Reference).
		Str("held", amountToPay.String()).
		Int("percent", req.PaymentPercent).
		Msg("booking created with hold")

	return result, nil
}

// GetBooking returns a booking and its ledger trail.
func (s *BookingServiceImpl) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, []domain.Transaction, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get booking: %w", err))
	}
	if booking == nil {
		return nil, nil, apperror.ErrNotFound("booking")
	}
	txns, err := s.txnRepo.ListForSubject(ctx, domain.SubjectKindBooking, id)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("list booking transactions: %w", err))
	}
	return booking, txns, nil
}

// ApproveBooking confirms a fully prepaid booking: the hold is converted
// into a payment with no cash remainder.
func (s *BookingServiceImpl) ApproveBooking(ctx context.Context, id uuid.UUID) (*ports.BookingResult, error) {
	return s.finalize(ctx, id, decimal.Zero)
}

// FinalizeWithCash confirms a partially prepaid booking. The business
// collected cashAmount in physical cash; it must equal the outstanding
// balance (total minus held).
func (s *BookingServiceImpl) FinalizeWithCash(ctx context.Context, id uuid.UUID, cashAmount decimal.Decimal) (*ports.BookingResult, error) {
	if cashAmount.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}
	return s.finalize(ctx, id, cashAmount)
}

// finalize converts a PENDING booking's hold into a final settlement.
// The hold is refunded and immediately re-debited as a PAYMENT, the cash
// remainder is recorded without wallet movement, the provisional
// business-side credits are reversed, and the full total is settled to the
// business and platform wallets. Every step happens in one atomic unit.
func (s *BookingServiceImpl) finalize(ctx context.Context, id uuid.UUID, cash decimal.Decimal) (*ports.BookingResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	booking, err := s.bookingRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock booking: %w", err))
	}
	if booking == nil {
		return nil, apperror.ErrNotFound("booking")
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, apperror.ErrInvalidStateTransition("booking is not pending")
	}

	holds, err := s.bookingHolds(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if holds.customer == nil {
		return nil, apperror.ErrInvalidStateTransition("booking has no active hold")
	}

	held := holds.customer.Amount
	outstanding := booking.TotalAmount.Sub(held)
	if !cash.Equal(outstanding) {
		return nil, apperror.Validation("cash amount must equal the outstanding balance")
	}

	split, err := s.calc.Split(ctx, booking.BusinessLocationID, booking.TotalAmount)
	if err != nil {
		return nil, err
	}

	wallets, err := s.settlement.lockSettlementWallets(ctx, dbTx, booking.CustomerID, booking.BusinessLocationID)
	if err != nil {
		return nil, err
	}
	if err := s.relockHolds(ctx, dbTx, holds); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var produced []*domain.Transaction
	subjectKind := domain.SubjectKindBooking

	// Refund the customer's hold and immediately re-debit it as the final
	// payment, so the hold ends fully reversed and replaced by exactly one
	// PAYMENT in the ledger.
	refund := reversalFor(holds.customer, now)
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.customer, refund); err != nil {
		return nil, err
	}
	if err := s.cancelEntry(ctx, dbTx, holds.customer); err != nil {
		return nil, err
	}
	produced = append(produced, refund)

	payment := &domain.Transaction{
		ID:                   uuid.New(),
		WalletKind:           wallets.customer.OwnerKind,
		WalletID:             wallets.customer.ID,
		Type:                 domain.TransactionTypePayment,
		Amount:               held,
		Status:               domain.TransactionStatusCompleted,
		Reference:            "PAY-HOLD-" + booking.Reference,
		SubjectKind:          &subjectKind,
		SubjectID:            &booking.ID,
		RelatedTransactionID: &holds.customer.ID,
		Description:          "Finalized payment for booking " + booking.Reference,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.customer, payment); err != nil {
		return nil, err
	}
	produced = append(produced, payment)

	if cash.IsPositive() {
		cashTxn := &domain.Transaction{
			ID:                   uuid.New(),
			WalletKind:           wallets.customer.OwnerKind,
			WalletID:             wallets.customer.ID,
			Type:                 domain.TransactionTypeCashPayment,
			Amount:               cash,
			Status:               domain.TransactionStatusCompleted,
			Reference:            "PAY-CASH-" + booking.Reference,
			SubjectKind:          &subjectKind,
			SubjectID:            &booking.ID,
			RelatedTransactionID: &payment.ID,
			Description:          "Cash remainder for booking " + booking.Reference,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.customer, cashTxn); err != nil {
			return nil, err
		}
		produced = append(produced, cashTxn)
	}

	// Reverse the provisional business-side credits from the hold so the
	// full-total settlement below is the only surviving credit.
	reversals, err := s.reverseBusinessHolds(ctx, dbTx, holds, wallets, now)
	if err != nil {
		return nil, err
	}
	produced = append(produced, reversals...)

	businessTxn := &domain.Transaction{
		ID:                   uuid.New(),
		WalletKind:           wallets.location.OwnerKind,
		WalletID:             wallets.location.ID,
		Type:                 domain.TransactionTypePayment,
		Amount:               split.Net,
		Status:               domain.TransactionStatusCompleted,
		Reference:            "PAY-BUSINESS-" + booking.Reference,
		SubjectKind:          &subjectKind,
		SubjectID:            &booking.ID,
		RelatedTransactionID: &payment.ID,
		Description:          "Net settlement for booking " + booking.Reference,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.location, businessTxn); err != nil {
		return nil, err
	}
	produced = append(produced, businessTxn)

	if split.Commission.IsPositive() {
		commissionTxn := &domain.Transaction{
			ID:                   uuid.New(),
			WalletKind:           wallets.platform.OwnerKind,
			WalletID:             wallets.platform.ID,
			Type:                 domain.TransactionTypeCommission,
			Amount:               split.Commission,
			Status:               domain.TransactionStatusCompleted,
			Reference:            "COM-" + booking.Reference,
			SubjectKind:          &subjectKind,
			SubjectID:            &booking.ID,
			RelatedTransactionID: &payment.ID,
			Description:          "Commission for booking " + booking.Reference,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.platform, commissionTxn); err != nil {
			return nil, err
		}
		produced = append(produced, commissionTxn)
	}

	booking.Status = domain.BookingStatusConfirmed
	if err := s.bookingRepo.Update(ctx, dbTx, booking); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update booking: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("held", held.String()).
		Str("cash", cash.String()).
		Msg("booking finalized")

	return &ports.BookingResult{Booking: booking, Transactions: produced}, nil
}

// CancelBooking cancels a PENDING booking: the provisional business-side
// credits are reversed and the customer is refunded what they paid, minus
// penalties when cancelling inside the free-cancellation window.
func (s *BookingServiceImpl) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*ports.CancellationResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	booking, err := s.bookingRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock booking: %w", err))
	}
	if booking == nil {
		return nil, apperror.ErrNotFound("booking")
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, apperror.ErrInvalidStateTransition("only pending bookings can be cancelled")
	}

	holds, err := s.bookingHolds(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	wallets, err := s.settlement.lockSettlementWallets(ctx, dbTx, booking.CustomerID, booking.BusinessLocationID)
	if err != nil {
		return nil, err
	}
	if err := s.relockHolds(ctx, dbTx, holds); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var produced []*domain.Transaction
	subjectKind := domain.SubjectKindBooking

	reversals, err := s.reverseBusinessHolds(ctx, dbTx, holds, wallets, now)
	if err != nil {
		return nil, err
	}
	produced = append(produced, reversals...)

	// What the customer actually paid from their wallet so far.
	alreadyPaid := decimal.Zero
	if holds.customer != nil {
		alreadyPaid = holds.customer.Amount
	}

	refundAmount := alreadyPaid
	businessPenalty := decimal.Zero
	platformPenalty := decimal.Zero
	if !booking.PenaltyFree(now) && alreadyPaid.IsPositive() {
		businessPenalty = alreadyPaid.Mul(domain.BusinessPenaltyRate).Round(2)
		platformPenalty = alreadyPaid.Mul(domain.PlatformPenaltyRate).Round(2)
		refundAmount = alreadyPaid.Sub(businessPenalty).Sub(platformPenalty)
	}

	if holds.customer != nil {
		if refundAmount.IsPositive() {
			refund := &domain.Transaction{
				ID:                   uuid.New(),
				WalletKind:           wallets.customer.OwnerKind,
				WalletID:             wallets.customer.ID,
				Type:                 domain.TransactionTypeRefund,
				Amount:               refundAmount,
				Status:               domain.TransactionStatusCompleted,
				Reference:            "REFUND-" + booking.Reference,
				SubjectKind:          &subjectKind,
				SubjectID:            &booking.ID,
				RelatedTransactionID: &holds.customer.ID,
				Description:          "Refund for cancelled booking " + booking.Reference,
				CreatedAt:            now,
				UpdatedAt:            now,
			}
			if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.customer, refund); err != nil {
				return nil, err
			}
			produced = append(produced, refund)
		}
		if err := s.cancelEntry(ctx, dbTx, holds.customer); err != nil {
			return nil, err
		}
	}

	if businessPenalty.IsPositive() {
		penalty := &domain.Transaction{
			ID:          uuid.New(),
			WalletKind:  wallets.location.OwnerKind,
			WalletID:    wallets.location.ID,
			Type:        domain.TransactionTypeCommission,
			Amount:      businessPenalty,
			Status:      domain.TransactionStatusCompleted,
			Reference:   "PEN-BUSINESS-" + booking.Reference,
			SubjectKind: &subjectKind,
			SubjectID:   &booking.ID,
			Description: "Late cancellation penalty for booking " + booking.Reference,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.location, penalty); err != nil {
			return nil, err
		}
		produced = append(produced, penalty)
	}
	if platformPenalty.IsPositive() {
		penalty := &domain.Transaction{
			ID:          uuid.New(),
			WalletKind:  wallets.platform.OwnerKind,
			WalletID:    wallets.platform.ID,
			Type:        domain.TransactionTypeCommission,
			Amount:      platformPenalty,
			Status:      domain.TransactionStatusCompleted,
			Reference:   "PEN-PLATFORM-" + booking.Reference,
			SubjectKind: &subjectKind,
			SubjectID:   &booking.ID,
			Description: "Late cancellation fee for booking " + booking.Reference,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.platform, penalty); err != nil {
			return nil, err
		}
		produced = append(produced, penalty)
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = &reason
	booking.CancelledAt = &now
	if err := s.bookingRepo.Update(ctx, dbTx, booking); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update booking: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("refund", refundAmount.String()).
		Str("business_penalty", businessPenalty.String()).
		Str("platform_penalty", platformPenalty.String()).
		Msg("booking cancelled")

	return &ports.CancellationResult{
		Booking:         booking,
		RefundAmount:    refundAmount,
		BusinessPenalty: businessPenalty,
		PlatformPenalty: platformPenalty,
		Transactions:    produced,
	}, nil
}

// bookingHoldSet groups the live hold legs of one booking.
type bookingHoldSet struct {
	customer   *domain.Transaction
	location   *domain.Transaction
	commission *domain.Transaction
}

// bookingHolds finds the booking's COMPLETED hold legs: the customer debit,
// the provisional business credit, and the hold-time commission.
func (s *BookingServiceImpl) bookingHolds(ctx context.Context, bookingID uuid.UUID) (*bookingHoldSet, error) {
	txns, err := s.txnRepo.ListForSubject(ctx, domain.SubjectKindBooking, bookingID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list booking transactions: %w", err))
	}

	holds := &bookingHoldSet{}
	for i := range txns {
		t := &txns[i]
		if t.Status != domain.TransactionStatusCompleted || t.Type != domain.TransactionTypeHold {
			continue
		}
		switch t.WalletKind {
		case domain.OwnerKindCustomer:
			holds.customer = t
		case domain.OwnerKindBusinessLocation:
			holds.location = t
		}
	}
	if holds.customer != nil {
		for i := range txns {
			t := &txns[i]
			if t.Status == domain.TransactionStatusCompleted && t.Type == domain.TransactionTypeCommission &&
				t.RelatedTransactionID != nil && *t.RelatedTransactionID == holds.customer.ID {
				holds.commission = t
				break
			}
		}
	}
	return holds, nil
}

// relockHolds re-reads each hold leg under the wallet locks and keeps only
// legs that are still COMPLETED. The initial hold lookup runs before the
// wallet locks are taken, so a concurrent cancellation of a hold entry can
// invalidate it in between; the locked copies are authoritative.
func (s *BookingServiceImpl) relockHolds(ctx context.Context, dbTx pgx.Tx, holds *bookingHoldSet) error {
	relock := func(leg *domain.Transaction) (*domain.Transaction, error) {
		if leg == nil {
			return nil, nil
		}
		locked, err := s.txnRepo.GetByIDForUpdate(ctx, dbTx, leg.ID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock hold leg: %w", err))
		}
		if locked == nil || !locked.IsCancellable() {
			return nil, apperror.ErrInvalidStateTransition("booking hold is no longer active")
		}
		return locked, nil
	}

	var err error
	if holds.customer, err = relock(holds.customer); err != nil {
		return err
	}
	if holds.location, err = relock(holds.location); err != nil {
		return err
	}
	if holds.commission, err = relock(holds.commission); err != nil {
		return err
	}
	return nil
}

// reverseBusinessHolds claws back the provisional location credit and the
// hold-time commission, marking both originals CANCELLED.
func (s *BookingServiceImpl) reverseBusinessHolds(ctx context.Context, dbTx pgx.Tx, holds *bookingHoldSet, wallets *settlementWallets, now time.Time) ([]*domain.Transaction, error) {
	var produced []*domain.Transaction
	if holds.location != nil {
		rev := reversalFor(holds.location, now)
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.location, rev); err != nil {
			return nil, err
		}
		if err := s.cancelEntry(ctx, dbTx, holds.location); err != nil {
			return nil, err
		}
		produced = append(produced, rev)
	}
	if holds.commission != nil {
		rev := reversalFor(holds.commission, now)
		if err := appendEntry(ctx, dbTx, s.walletRepo, s.txnRepo, wallets.platform, rev); err != nil {
			return nil, err
		}
		if err := s.cancelEntry(ctx, dbTx, holds.commission); err != nil {
			return nil, err
		}
		produced = append(produced, rev)
	}
	return produced, nil
}

func (s *BookingServiceImpl) cancelEntry(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	if err := s.txnRepo.UpdateStatus(ctx, dbTx, txn.ID, domain.TransactionStatusCancelled); err != nil {
		return apperror.InternalError(fmt.Errorf("cancel ledger entry: %w", err))
	}
	txn.Status = domain.TransactionStatusCancelled
	return nil
}

// collectLegs flattens a settlement result into a transaction slice.
func collectLegs(legs *ports.SettlementResult) []*domain.Transaction {
	out := []*domain.Transaction{legs.CustomerTxn, legs.BusinessTxn}
	if legs.CommissionTxn != nil {
		out = append(out, legs.CommissionTxn)
	}
	return out
}

// checkIdempotency runs the two idempotency layers for booking-shaped
// cached responses.
func (s *BookingServiceImpl) checkIdempotency(ctx context.Context, key string) (*ports.BookingResult, error) {
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

	result := &ports.BookingResult{}
	if err := json.Unmarshal(cached, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached booking: %w", err))
	}
	return result, nil
}
