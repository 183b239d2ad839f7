package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BusinessRepo implements ports.BusinessRepository.
type BusinessRepo struct {
	pool Pool
}

// NewBusinessRepo creates a new BusinessRepo.
func NewBusinessRepo(pool Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

// CreateBusiness inserts a new business.
func (r *BusinessRepo) CreateBusiness(ctx context.Context, b *domain.Business) error {
	query := `INSERT INTO businesses (id, name, commission_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.Name, b.CommissionRate, b.IsActive, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

// GetBusiness fetches a business by UUID.
func (r *BusinessRepo) GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	query := `SELECT id, name, commission_rate, is_active, created_at, updated_at
		FROM businesses WHERE id = $1`

	b := &domain.Business{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.CommissionRate, &b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// CreateLocation inserts a new business location within a database
// transaction, so the location and its wallet commit together.
func (r *BusinessRepo) CreateLocation(ctx context.Context, tx pgx.Tx, l *domain.BusinessLocation) error {
	query := `INSERT INTO business_locations (id, business_id, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		l.ID, l.BusinessID, l.Name, l.IsActive, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert business location: %w", err)
	}
	return nil
}

// GetLocation fetches a business location by UUID.
func (r *BusinessRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.BusinessLocation, error) {
	query := `SELECT id, business_id, name, is_active, created_at, updated_at
		FROM business_locations WHERE id = $1`

	l := &domain.BusinessLocation{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.BusinessID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business location: %w", err)
	}
	return l, nil
}

// GetBusinessForLocation fetches the owning business of a location in one
// round trip; used to resolve the commission rate during settlement.
func (r *BusinessRepo) GetBusinessForLocation(ctx context.Context, locationID uuid.UUID) (*domain.Business, error) {
	query := `SELECT b.id, b.name, b.commission_rate, b.is_active, b.created_at, b.updated_at
		FROM businesses b JOIN business_locations l ON l.business_id = b.id
		WHERE l.id = $1`

	b := &domain.Business{}
	err := r.pool.QueryRow(ctx, query, locationID).Scan(
		&b.ID, &b.Name, &b.CommissionRate, &b.IsActive, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business for location: %w", err)
	}
	return b, nil
}
