package handler

import (
	"time"

	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/apperror"
	"marketplace-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingHandler handles the booking payment lifecycle endpoints.
type BookingHandler struct {
	bookingSvc ports.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingSvc ports.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// Create handles POST /api/v1/bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
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
	serviceDate, err := time.Parse(time.RFC3339, req.ServiceDate)
	if err != nil {
		response.Error(c, apperror.Validation("service_date must be RFC 3339"))
		return
	}

	result, err := h.bookingSvc.CreateBooking(c.Request.Context(), ports.CreateBookingRequest{
		CustomerID:     customerID,
		LocationID:     locationID,
		TotalAmount:    req.TotalAmount,
		PaymentPercent: req.PaymentPercent,
		ServiceDate:    serviceDate,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.BookingResultResponse{
		Booking:      toBookingResponse(result.Booking),
		Transactions: toTransactionResponses(result.Transactions),
	})
}

// Get handles GET /api/v1/bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid booking id"))
		return
	}

	booking, txns, err := h.bookingSvc.GetBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.OK(c, dto.BookingResultResponse{
		Booking:      toBookingResponse(booking),
		Transactions: items,
	})
}

// Approve handles POST /api/v1/bookings/:id/approve.
func (h *BookingHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid booking id"))
		return
	}

	result, err := h.bookingSvc.ApproveBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BookingResultResponse{
		Booking:      toBookingResponse(result.Booking),
		Transactions: toTransactionResponses(result.Transactions),
	})
}

// Finalize handles POST /api/v1/bookings/:id/finalize.
func (h *BookingHandler) Finalize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid booking id"))
		return
	}
	var req dto.FinalizeBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	result, err := h.bookingSvc.FinalizeWithCash(c.Request.Context(), id, req.CashAmount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BookingResultResponse{
		Booking:      toBookingResponse(result.Booking),
		Transactions: toTransactionResponses(result.Transactions),
	})
}

// Cancel handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid booking id"))
		return
	}
	var req dto.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.bookingSvc.CancelBooking(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CancellationResponse{
		Booking:         toBookingResponse(result.Booking),
		RefundAmount:    result.RefundAmount,
		BusinessPenalty: result.BusinessPenalty,
		PlatformPenalty: result.PlatformPenalty,
		Transactions:    toTransactionResponses(result.Transactions),
	})
}
