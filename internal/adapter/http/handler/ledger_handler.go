package handler

import (
	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"
	"marketplace-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles ledger query, transfer, and cancellation endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Get handles GET /api/v1/transactions/:id.
func (h *LedgerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.ledgerSvc.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}

// GetByReference handles GET /api/v1/transactions/reference/:reference.
func (h *LedgerHandler) GetByReference(c *gin.Context) {
	txn, err := h.ledgerSvc.FindByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}

// Cancel handles POST /api/v1/transactions/:id/cancel.
func (h *LedgerHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	result, err := h.ledgerSvc.CancelTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CancelResponse{
		Cancelled: toTransactionResponses(result.Cancelled),
		Reversals: toTransactionResponses(result.Reversals),
	})
}

// Transfer handles POST /api/v1/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	fromID, err := uuid.Parse(req.FromOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_owner_id"))
		return
	}
	toID, err := uuid.Parse(req.ToOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_owner_id"))
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromKind:       domain.OwnerKind(req.FromOwnerKind),
		FromOwnerID:    fromID,
		ToKind:         domain.OwnerKind(req.ToOwnerKind),
		ToOwnerID:      toID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.TransferResponse{
		Outgoing: toTransactionResponse(result.Outgoing),
		Incoming: toTransactionResponse(result.Incoming),
	})
}
