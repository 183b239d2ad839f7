package handler

import (
	"context"
	"strconv"
	"time"

	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"
	"marketplace-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet lifecycle and direct movement endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
	ledgerSvc ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, ledgerSvc ports.LedgerService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, ledgerSvc: ledgerSvc}
}

// Create handles POST /api/v1/wallets. It is get-or-create: repeating the
// call returns the existing wallet.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	wallet, err := h.walletSvc.GetOrCreateWallet(c.Request.Context(), domain.OwnerKind(req.OwnerKind), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toWalletResponse(wallet))
}

// Get handles GET /api/v1/wallets/owner/:owner_kind/:owner_id.
func (h *WalletHandler) Get(c *gin.Context) {
	kind := domain.OwnerKind(c.Param("owner_kind"))
	if !kind.IsValid() {
		response.Error(c, apperror.Validation("unknown wallet owner kind"))
		return
	}
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), kind, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// Deposit handles POST /api/v1/wallets/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.move(c, h.walletSvc.Deposit)
}

// Withdraw handles POST /api/v1/wallets/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, h.walletSvc.Withdraw)
}

func (h *WalletHandler) move(c *gin.Context, op func(ctx context.Context, req ports.MovementRequest) (*domain.Transaction, error)) {
	var req dto.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}

	txn, err := op(c.Request.Context(), ports.MovementRequest{
		OwnerKind:      domain.OwnerKind(req.OwnerKind),
		OwnerID:        ownerID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toTransactionResponse(txn))
}

// CheckFunds handles GET /api/v1/wallets/owner/:owner_kind/:owner_id/check-funds?amount=N.
func (h *WalletHandler) CheckFunds(c *gin.Context) {
	kind := domain.OwnerKind(c.Param("owner_kind"))
	if !kind.IsValid() {
		response.Error(c, apperror.Validation("unknown wallet owner kind"))
		return
	}
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return
	}
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid amount"))
		return
	}

	ok, err := h.walletSvc.CheckFunds(c.Request.Context(), kind, ownerID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CheckFundsResponse{Sufficient: ok, Amount: amount})
}

// SetActive handles PATCH /api/v1/wallets/:id/active.
func (h *WalletHandler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.walletSvc.SetWalletActive(c.Request.Context(), id, *req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id.String(), "active": *req.Active})
}

// Transactions handles GET /api/v1/wallets/:id/transactions with optional
// type, status, from, to, limit, and offset query filters.
func (h *WalletHandler) Transactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	params := ports.TransactionListParams{WalletID: id}
	if v := c.Query("type"); v != "" {
		txnType := domain.TransactionType(v)
		params.Type = &txnType
	}
	if v := c.Query("status"); v != "" {
		status := domain.TransactionStatus(v)
		params.Status = &status
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid from timestamp"))
			return
		}
		params.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid to timestamp"))
			return
		}
		params.To = &to
	}
	params.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	params.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if params.Limit < 1 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	txns, total, err := h.ledgerSvc.ListForWallet(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.TransactionListResponse{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// Statistics handles GET /api/v1/wallets/:id/statistics.
func (h *WalletHandler) Statistics(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	stats, err := h.walletSvc.GetWalletStatistics(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WalletStatisticsResponse{
		WalletID:         stats.WalletID.String(),
		Balance:          stats.Balance,
		Currency:         stats.Currency,
		TotalDeposited:   stats.TotalDeposited,
		TotalWithdrawn:   stats.TotalWithdrawn,
		TransactionCount: stats.TransactionCount,
	})
}
