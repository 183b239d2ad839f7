package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	pool Pool
}

// NewBookingRepo creates a new BookingRepo.
func NewBookingRepo(pool Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

const bookingColumns = `id, reference, customer_id, business_location_id, total_amount, commission_amount,
		payment_percent, service_date, status, cancellation_reason, cancelled_at, created_at, updated_at`

// Create inserts a new booking within a database transaction.
func (r *BookingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `INSERT INTO bookings (id, reference, customer_id, business_location_id, total_amount, commission_amount,
		payment_percent, service_date, status, cancellation_reason, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.Reference, b.CustomerID, b.BusinessLocationID, b.TotalAmount, b.CommissionAmount,
		b.PaymentPercent, b.ServiceDate, b.Status, b.CancellationReason, b.CancelledAt,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking by UUID.
func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

// GetByIDForUpdate fetches a booking by UUID with pessimistic locking.
// This MUST be called within a transaction. Status transitions lock the
// booking row first so concurrent approve/cancel cannot interleave.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get booking for update: %w", err)
	}
	return b, nil
}

// GetByReference fetches a booking by its unique reference.
func (r *BookingRepo) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = $1`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, fmt.Errorf("get booking by reference: %w", err)
	}
	return b, nil
}

// Update persists booking state changes within a database transaction.
func (r *BookingRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `UPDATE bookings SET status = $1, payment_percent = $2, cancellation_reason = $3,
		cancelled_at = $4, updated_at = NOW() WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		b.Status, b.PaymentPercent, b.CancellationReason, b.CancelledAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking not found: %s", b.ID)
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.BusinessLocationID, &b.TotalAmount, &b.CommissionAmount,
		&b.PaymentPercent, &b.ServiceDate, &b.Status, &b.CancellationReason, &b.CancelledAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}
