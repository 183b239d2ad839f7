package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerKind == w.OwnerKind && existing.OwnerID == w.OwnerID {
			return fmt.Errorf("wallet already exists for owner")
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) CreateInTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	return r.Create(ctx, w)
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerKind == kind && w.OwnerID == ownerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByOwner(ctx, kind, ownerID)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	return nil
}

func (r *inMemoryWalletRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.IsActive = active
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu   sync.RWMutex
	txns map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{txns: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.txns {
		if existing.Reference == t.Reference {
			return fmt.Errorf("duplicate reference %s", t.Reference)
		}
	}
	cp := *t
	r.txns[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.txns[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txns {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txns[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	return nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Transaction
	for _, t := range r.txns {
		if t.WalletID != params.WalletID {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.From != nil && t.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && t.CreatedAt.After(*params.To) {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := params.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if params.Limit > 0 && start+params.Limit < end {
		end = start + params.Limit
	}
	return matched[start:end], total, nil
}

func (r *inMemoryTransactionRepo) ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID uuid.UUID) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Transaction
	for _, t := range r.txns {
		if t.SubjectKind == nil || t.SubjectID == nil {
			continue
		}
		if *t.SubjectKind != kind || *t.SubjectID != subjectID {
			continue
		}
		matched = append(matched, *t)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (r *inMemoryTransactionRepo) SumForWallet(ctx context.Context, walletID uuid.UUID, txnType domain.TransactionType, status domain.TransactionStatus) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := decimal.Zero
	for _, t := range r.txns {
		if t.WalletID == walletID && t.Type == txnType && t.Status == status {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// --- In-Memory Booking Repo ---

type inMemoryBookingRepo struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*domain.Booking
}

func newInMemoryBookingRepo() *inMemoryBookingRepo {
	return &inMemoryBookingRepo{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (r *inMemoryBookingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *inMemoryBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBookingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryBookingRepo) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bookings {
		if b.Reference == reference {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryBookingRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return fmt.Errorf("booking not found")
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

// --- In-Memory Business Repo ---

type inMemoryBusinessRepo struct {
	mu         sync.RWMutex
	businesses map[uuid.UUID]*domain.Business
	locations  map[uuid.UUID]*domain.BusinessLocation
}

func newInMemoryBusinessRepo() *inMemoryBusinessRepo {
	return &inMemoryBusinessRepo{
		businesses: make(map[uuid.UUID]*domain.Business),
		locations:  make(map[uuid.UUID]*domain.BusinessLocation),
	}
}

func (r *inMemoryBusinessRepo) CreateBusiness(ctx context.Context, b *domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

func (r *inMemoryBusinessRepo) GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBusinessRepo) CreateLocation(ctx context.Context, tx pgx.Tx, l *domain.BusinessLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.locations[l.ID] = &cp
	return nil
}

func (r *inMemoryBusinessRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.BusinessLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryBusinessRepo) GetBusinessForLocation(ctx context.Context, locationID uuid.UUID) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[locationID]
	if !ok {
		return nil, nil
	}
	b, ok := r.businesses[l.BusinessID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[l.Key]; ok {
		return fmt.Errorf("idempotency key already exists")
	}
	cp := *l
	r.logs[l.Key] = &cp
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
