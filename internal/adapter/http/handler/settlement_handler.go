package handler

import (
	"context"

	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"
	"marketplace-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SettlementHandler handles settlement and hold endpoints.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementSvc ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// Settle handles POST /api/v1/settlements.
func (h *SettlementHandler) Settle(c *gin.Context) {
	h.run(c, h.settlementSvc.SettlePayment)
}

// Hold handles POST /api/v1/settlements/hold.
func (h *SettlementHandler) Hold(c *gin.Context) {
	h.run(c, h.settlementSvc.CreateHold)
}

func (h *SettlementHandler) run(c *gin.Context, op func(ctx context.Context, req ports.SettlementRequest) (*ports.SettlementResult, error)) {
	var req dto.SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid customer_id"))
		return
	}
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid location_id"))
		return
	}

	var subject *ports.SubjectRef
	if req.SubjectKind != nil && req.SubjectID != nil {
		subjectID, err := uuid.Parse(*req.SubjectID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid subject_id"))
			return
		}
		subject = &ports.SubjectRef{Kind: domain.SubjectKind(*req.SubjectKind), ID: subjectID}
	}

	result, err := op(c.Request.Context(), ports.SettlementRequest{
		CustomerID:     customerID,
		LocationID:     locationID,
		GrossAmount:    req.GrossAmount,
		Subject:        subject,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toSettlementResponse(result))
}
