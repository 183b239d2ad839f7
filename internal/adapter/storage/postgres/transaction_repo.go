package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, wallet_kind, wallet_id, transaction_type, amount, status, reference,
		subject_kind, subject_id, related_transaction_id, description, created_at, updated_at`

// Create appends a new ledger entry within a database transaction.
// The unique index on reference rejects duplicates.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, wallet_kind, wallet_id, transaction_type, amount, status, reference,
		subject_kind, subject_id, related_transaction_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletKind, t.WalletID, t.Type, t.Amount, t.Status, t.Reference,
		t.SubjectKind, t.SubjectID, t.RelatedTransactionID, t.Description,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// GetByIDForUpdate fetches a ledger entry by UUID with pessimistic locking.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`

	t, err := scanTransaction(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction for update: %w", err)
	}
	return t, nil
}

// GetByReference fetches a ledger entry by its unique reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return t, nil
}

// UpdateStatus updates a ledger entry's status within a database transaction.
// Amounts and wallet references are immutable; status is the only mutable field.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// List fetches ledger entries for a wallet with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	// Fetch page
	dataQuery := fmt.Sprintf(`SELECT `+transactionColumns+`
		FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListForSubject fetches all ledger entries tied to a subject, oldest first.
func (r *TransactionRepo) ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE subject_kind = $1 AND subject_id = $2 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, kind, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list transactions for subject: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// SumForWallet sums amounts of a wallet's entries by type and status.
func (r *TransactionRepo) SumForWallet(ctx context.Context, walletID uuid.UUID, txnType domain.TransactionType, status domain.TransactionStatus) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE wallet_id = $1 AND transaction_type = $2 AND status = $3`

	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, walletID, txnType, status).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions for wallet: %w", err)
	}
	return sum, nil
}

// scanTransaction scans a single row into a Transaction. Returns (nil, nil)
// when no row matched.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletKind, &t.WalletID, &t.Type, &t.Amount, &t.Status, &t.Reference,
		&t.SubjectKind, &t.SubjectID, &t.RelatedTransactionID, &t.Description,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.WalletKind, &t.WalletID, &t.Type, &t.Amount, &t.Status, &t.Reference,
			&t.SubjectKind, &t.SubjectID, &t.RelatedTransactionID, &t.Description,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
