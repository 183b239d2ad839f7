package handler

import (
	"time"

	"marketplace-ledger/internal/adapter/http/dto"
	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
)

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		OwnerKind: string(w.OwnerKind),
		OwnerID:   w.OwnerID.String(),
		Balance:   w.Balance,
		Currency:  w.Currency,
		IsActive:  w.IsActive,
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:          t.ID.String(),
		WalletID:    t.WalletID.String(),
		WalletKind:  string(t.WalletKind),
		Type:        string(t.Type),
		Amount:      t.Amount,
		Status:      string(t.Status),
		Reference:   t.Reference,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.SubjectKind != nil {
		kind := string(*t.SubjectKind)
		resp.SubjectKind = &kind
	}
	if t.SubjectID != nil {
		id := t.SubjectID.String()
		resp.SubjectID = &id
	}
	if t.RelatedTransactionID != nil {
		id := t.RelatedTransactionID.String()
		resp.RelatedTransactionID = &id
	}
	return resp
}

func toTransactionResponses(txns []*domain.Transaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func toSettlementResponse(r *ports.SettlementResult) dto.SettlementResponse {
	resp := dto.SettlementResponse{
		CustomerTransaction: toTransactionResponse(r.CustomerTxn),
		BusinessTransaction: toTransactionResponse(r.BusinessTxn),
		Commission:          r.Commission,
		NetAmount:           r.NetAmount,
	}
	if r.CommissionTxn != nil {
		com := toTransactionResponse(r.CommissionTxn)
		resp.CommissionTransaction = &com
	}
	return resp
}

func toBookingResponse(b *domain.Booking) dto.BookingResponse {
	return dto.BookingResponse{
		ID:                 b.ID.String(),
		Reference:          b.Reference,
		CustomerID:         b.CustomerID.String(),
		BusinessLocationID: b.BusinessLocationID.String(),
		TotalAmount:        b.TotalAmount,
		CommissionAmount:   b.CommissionAmount,
		PaymentPercent:     b.PaymentPercent,
		ServiceDate:        b.ServiceDate.UTC().Format(time.RFC3339),
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBusinessResponse(b *domain.Business) dto.BusinessResponse {
	return dto.BusinessResponse{
		ID:             b.ID.String(),
		Name:           b.Name,
		CommissionRate: b.CommissionRate,
		IsActive:       b.IsActive,
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toLocationResponse(l *domain.BusinessLocation, w *domain.Wallet) dto.LocationResponse {
	resp := dto.LocationResponse{
		ID:         l.ID.String(),
		BusinessID: l.BusinessID.String(),
		Name:       l.Name,
		IsActive:   l.IsActive,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if w != nil {
		wr := toWalletResponse(w)
		resp.Wallet = &wr
	}
	return resp
}
