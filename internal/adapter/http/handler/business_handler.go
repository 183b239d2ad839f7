package handler

import (
	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"
	"marketplace-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BusinessHandler handles business and location management endpoints.
type BusinessHandler struct {
	businessSvc ports.BusinessService
}

// NewBusinessHandler creates a new BusinessHandler.
func NewBusinessHandler(businessSvc ports.BusinessService) *BusinessHandler {
	return &BusinessHandler{businessSvc: businessSvc}
}

// Create handles POST /api/v1/businesses.
func (h *BusinessHandler) Create(c *gin.Context) {
	var req dto.CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	business, err := h.businessSvc.CreateBusiness(c.Request.Context(), req.Name, req.CommissionRate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toBusinessResponse(business))
}

// Get handles GET /api/v1/businesses/:id.
func (h *BusinessHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid business id"))
		return
	}

	business, err := h.businessSvc.GetBusiness(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toBusinessResponse(business))
}

// CreateLocation handles POST /api/v1/businesses/:id/locations. The
// location's wallet is provisioned in the same unit of work and returned.
func (h *BusinessHandler) CreateLocation(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid business id"))
		return
	}
	var req dto.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	location, wallet, err := h.businessSvc.CreateLocation(c.Request.Context(), businessID, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toLocationResponse(location, wallet))
}
