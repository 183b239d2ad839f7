package service

import (
	"context"
	"fmt"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionSplit is the outcome of splitting a gross amount between the
// business location and the platform operator.
type CommissionSplit struct {
	Business   *domain.Business
	Location   *domain.BusinessLocation
	Rate       decimal.Decimal
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// CommissionCalculator resolves a location's owning business and computes
// the platform's share of a gross amount at that business's rate.
type CommissionCalculator struct {
	businessRepo ports.BusinessRepository
}

// NewCommissionCalculator creates a new CommissionCalculator.
func NewCommissionCalculator(businessRepo ports.BusinessRepository) *CommissionCalculator {
	return &CommissionCalculator{businessRepo: businessRepo}
}

// Split computes commission and net shares of gross for the location.
// commission = gross * rate / 100 rounded to 2 places; net = gross - commission,
// so the two legs always recombine to the gross exactly.
func (c *CommissionCalculator) Split(ctx context.Context, locationID uuid.UUID, gross decimal.Decimal) (*CommissionSplit, error) {
	if !gross.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	location, err := c.businessRepo.GetLocation(ctx, locationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get location: %w", err))
	}
	if location == nil {
		return nil, apperror.ErrNotFound("business location")
	}
	if !location.IsActive {
		return nil, apperror.Validation("business location is inactive")
	}

	business, err := c.businessRepo.GetBusinessForLocation(ctx, locationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get business for location: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}
	if !business.IsActive {
		return nil, apperror.Validation("business is inactive")
	}

	commission := business.CommissionOn(gross)
	return &CommissionSplit{
		Business:   business,
		Location:   location,
		Rate:       business.CommissionRate,
		Commission: commission,
		Net:        gross.Sub(commission),
	}, nil
}
