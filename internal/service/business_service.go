package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BusinessServiceImpl implements ports.BusinessService.
type BusinessServiceImpl struct {
	businessRepo ports.BusinessRepository
	walletRepo   ports.WalletRepository
	transactor   ports.DBTransactor
	currency     string
	log          zerolog.Logger
}

// NewBusinessService creates a new BusinessServiceImpl.
func NewBusinessService(
	businessRepo ports.BusinessRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	currency string,
	log zerolog.Logger,
) *BusinessServiceImpl {
	return &BusinessServiceImpl{
		businessRepo: businessRepo,
		walletRepo:   walletRepo,
		transactor:   transactor,
		currency:     currency,
		log:          log,
	}
}

// CreateBusiness registers a business with the given commission rate, or
// the marketplace default when none is supplied.
func (s *BusinessServiceImpl) CreateBusiness(ctx context.Context, name string, commissionRate *decimal.Decimal) (*domain.Business, error) {
	if name == "" {
		return nil, apperror.Validation("business name is required")
	}

	rate := domain.DefaultCommissionRate
	if commissionRate != nil {
		if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperror.Validation("commission rate must be between 0 and 100")
		}
		rate = *commissionRate
	}

	now := time.Now().UTC()
	business := &domain.Business{
		ID:             uuid.New(),
		Name:           name,
		CommissionRate: rate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.businessRepo.CreateBusiness(ctx, business); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create business: %w", err))
	}

	s.log.Info().
		Str("business_id", business.ID.String()).
		Str("commission_rate", rate.String()).
		Msg("business created")

	return business, nil
}

// GetBusiness fetches a business by ID.
func (s *BusinessServiceImpl) GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	business, err := s.businessRepo.GetBusiness(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}
	return business, nil
}

// CreateLocation registers a location under a business and provisions its
// wallet in the same atomic unit, so settlements never race wallet creation.
func (s *BusinessServiceImpl) CreateLocation(ctx context.Context, businessID uuid.UUID, name string) (*domain.BusinessLocation, *domain.Wallet, error) {
	if name == "" {
		return nil, nil, apperror.Validation("location name is required")
	}

	business, err := s.businessRepo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("get business: %w", err))
	}
	if business == nil {
		return nil, nil, apperror.ErrNotFound("business")
	}
	if !business.IsActive {
		return nil, nil, apperror.Validation("business is inactive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	location := &domain.BusinessLocation{
		ID:         uuid.New(),
		BusinessID: businessID,
		Name:       name,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.businessRepo.CreateLocation(ctx, dbTx, location); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create location: %w", err))
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		OwnerKind: domain.OwnerKindBusinessLocation,
		OwnerID:   location.ID,
		Balance:   decimal.Zero,
		Currency:  s.currency,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateInTx(ctx, dbTx, wallet); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("create location wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("location_id", location.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Msg("business location created with wallet")

	return location, wallet, nil
}
