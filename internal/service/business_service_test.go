package service

import (
	"context"
	"errors"
	"testing"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBusinessDefaultsCommissionRate(t *testing.T) {
	env := newTestEnv()

	business, err := env.businessSvc.CreateBusiness(context.Background(), "Safari Co", nil)
	require.NoError(t, err)
	assert.True(t, business.CommissionRate.Equal(domain.DefaultCommissionRate))
	assert.True(t, business.IsActive)
}

func TestCreateBusinessCustomRate(t *testing.T) {
	env := newTestEnv()

	rate := decimal.NewFromFloat(7.5)
	business, err := env.businessSvc.CreateBusiness(context.Background(), "Safari Co", &rate)
	require.NoError(t, err)
	assert.True(t, business.CommissionRate.Equal(rate))
}

func TestCreateBusinessRejectsBadRate(t *testing.T) {
	env := newTestEnv()

	for _, rate := range []decimal.Decimal{decimal.NewFromInt(-1), decimal.NewFromInt(101)} {
		r := rate
		_, err := env.businessSvc.CreateBusiness(context.Background(), "Safari Co", &r)
		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "WAL_002", appErr.Code)
	}
}

func TestCreateLocationProvisionsWallet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	location, wallet, err := env.businessSvc.CreateLocation(ctx, env.business.ID, "Airport Kiosk")
	require.NoError(t, err)
	assert.Equal(t, env.business.ID, location.BusinessID)
	assert.Equal(t, domain.OwnerKindBusinessLocation, wallet.OwnerKind)
	assert.Equal(t, location.ID, wallet.OwnerID)
	assert.True(t, wallet.Balance.IsZero())

	stored, err := env.wallets.GetByOwner(ctx, domain.OwnerKindBusinessLocation, location.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, wallet.ID, stored.ID)
}

func TestCreateLocationUnknownBusiness(t *testing.T) {
	env := newTestEnv()

	_, _, err := env.businessSvc.CreateLocation(context.Background(), uuid.New(), "Airport Kiosk")
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_004", appErr.Code)
}
