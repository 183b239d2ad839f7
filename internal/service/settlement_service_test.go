package service

import (
	"context"
	"errors"
	"testing"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlePaymentSplitsGross(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	customer := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(6000))

	result, err := env.settlementSvc.SettlePayment(ctx, ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(5000),
	})
	require.NoError(t, err)

	// 5% of 5000 = 250 commission, 4750 net.
	assert.True(t, result.Commission.Equal(decimal.NewFromInt(250)))
	assert.True(t, result.NetAmount.Equal(decimal.NewFromInt(4750)))

	assert.True(t, env.wallets.balance(customer.ID).Equal(decimal.NewFromInt(1000)))
	assert.True(t, env.wallets.balance(result.BusinessTxn.WalletID).Equal(decimal.NewFromInt(4750)))
	require.NotNil(t, result.CommissionTxn)
	assert.True(t, env.wallets.balance(result.CommissionTxn.WalletID).Equal(decimal.NewFromInt(250)))

	// Legs share a reference stem and link to the customer debit.
	assert.Equal(t, result.CustomerTxn.Reference+"-NET", result.BusinessTxn.Reference)
	assert.Equal(t, result.CustomerTxn.Reference+"-COM", result.CommissionTxn.Reference)
	require.NotNil(t, result.BusinessTxn.RelatedTransactionID)
	assert.Equal(t, result.CustomerTxn.ID, *result.BusinessTxn.RelatedTransactionID)
}

func TestSettlePaymentConservesMoney(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	customer := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(10000))

	gross := decimal.RequireFromString("3333.33")
	result, err := env.settlementSvc.SettlePayment(ctx, ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: gross,
	})
	require.NoError(t, err)

	debited := decimal.NewFromInt(10000).Sub(env.wallets.balance(customer.ID))
	credited := env.wallets.balance(result.BusinessTxn.WalletID)
	if result.CommissionTxn != nil {
		credited = credited.Add(env.wallets.balance(result.CommissionTxn.WalletID))
	}
	assert.True(t, debited.Equal(credited), "debited %s, credited %s", debited, credited)
	assert.True(t, debited.Equal(gross))
}

func TestSettlePaymentInsufficientFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	customer := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(100))

	_, err := env.settlementSvc.SettlePayment(ctx, ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(5000),
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_001", appErr.Code)

	assert.True(t, env.wallets.balance(customer.ID).Equal(decimal.NewFromInt(100)))
	txns, total, err := env.txns.List(ctx, ports.TransactionListParams{WalletID: customer.ID})
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.Zero(t, total)
}

func TestSettlePaymentMissingCustomerWallet(t *testing.T) {
	env := newTestEnv()

	_, err := env.settlementSvc.SettlePayment(context.Background(), ports.SettlementRequest{
		CustomerID:  uuid.New(),
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(100),
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_004", appErr.Code)
}

func TestSettlePaymentUnconfiguredOperator(t *testing.T) {
	env := newTestEnv()
	env.settlementSvc.operatorID = uuid.Nil
	customerID := uuid.New()
	env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(1000))

	_, err := env.settlementSvc.SettlePayment(context.Background(), ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(100),
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "SET_001", appErr.Code)
}

func TestSettlePaymentIdempotentReplay(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	customer := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(10000))

	req := ports.SettlementRequest{
		CustomerID:     customerID,
		LocationID:     env.location.ID,
		GrossAmount:    decimal.NewFromInt(2000),
		IdempotencyKey: "pay-1",
	}
	first, err := env.settlementSvc.SettlePayment(ctx, req)
	require.NoError(t, err)
	second, err := env.settlementSvc.SettlePayment(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerTxn.ID, second.CustomerTxn.ID)
	assert.True(t, env.wallets.balance(customer.ID).Equal(decimal.NewFromInt(8000)), "debited once only")
}

func TestCreateHoldProvisionsBusinessWallets(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	customer := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(1000))

	result, err := env.settlementSvc.CreateHold(ctx, ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeHold, result.CustomerTxn.Type)
	assert.Equal(t, domain.TransactionTypeHold, result.BusinessTxn.Type)
	assert.Contains(t, result.CustomerTxn.Reference, "HOLD-")

	// Location and platform wallets did not exist before the hold.
	locWallet, err := env.wallets.GetByOwner(ctx, domain.OwnerKindBusinessLocation, env.location.ID)
	require.NoError(t, err)
	require.NotNil(t, locWallet)
	assert.True(t, locWallet.Balance.Equal(decimal.NewFromInt(950)))

	platWallet, err := env.wallets.GetByOwner(ctx, domain.OwnerKindPlatform, env.operatorID)
	require.NoError(t, err)
	require.NotNil(t, platWallet)
	assert.True(t, platWallet.Balance.Equal(decimal.NewFromInt(50)))

	assert.True(t, env.wallets.balance(customer.ID).IsZero())
}

func TestSettleRejectsInactiveCustomerWallet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	customerID := uuid.New()
	w := env.seedWallet(domain.OwnerKindCustomer, customerID, decimal.NewFromInt(1000))
	require.NoError(t, env.wallets.SetActive(ctx, w.ID, false))

	_, err := env.settlementSvc.SettlePayment(ctx, ports.SettlementRequest{
		CustomerID:  customerID,
		LocationID:  env.location.ID,
		GrossAmount: decimal.NewFromInt(100),
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "WAL_003", appErr.Code)
}
