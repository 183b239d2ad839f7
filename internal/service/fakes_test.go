package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-ledger/internal/core/domain"
	"marketplace-ledger/internal/core/ports"
	"marketplace-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestLogger() zerolog.Logger {
	return logger.New("error", false)
}

// --- In-Memory Wallet Repo ---

type fakeWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet

	// onLockByOwner, when set, fires once before the next GetByOwnerForUpdate
	// resolves. Tests use it to interleave a competing operation at the point
	// where an in-flight operation is acquiring its wallet locks.
	onLockByOwner func()
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *fakeWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
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

func (r *fakeWalletRepo) CreateInTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	return r.Create(ctx, w)
}

func (r *fakeWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *fakeWalletRepo) GetByOwner(ctx context.Context, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
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

func (r *fakeWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeWalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, kind domain.OwnerKind, ownerID uuid.UUID) (*domain.Wallet, error) {
	if hook := r.onLockByOwner; hook != nil {
		r.onLockByOwner = nil
		hook()
	}
	return r.GetByOwner(ctx, kind, ownerID)
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	return nil
}

func (r *fakeWalletRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.IsActive = active
	return nil
}

// balance is a test helper reading the stored balance directly.
func (r *fakeWalletRepo) balance(id uuid.UUID) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.wallets[id].Balance
}

// --- In-Memory Transaction Repo ---

type fakeTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.transactions {
		if existing.Reference == t.Reference {
			return fmt.Errorf("duplicate reference %s", t.Reference)
		}
	}
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *fakeTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.Reference == reference {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	return nil
}

func (r *fakeTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.WalletID != params.WalletID {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	if params.Offset >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := len(result)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}
	return result[params.Offset:end], total, nil
}

func (r *fakeTransactionRepo) ListForSubject(ctx context.Context, kind domain.SubjectKind, subjectID uuid.UUID) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.SubjectKind != nil && *t.SubjectKind == kind && t.SubjectID != nil && *t.SubjectID == subjectID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTransactionRepo) SumForWallet(ctx context.Context, walletID uuid.UUID, txnType domain.TransactionType, status domain.TransactionStatus) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.WalletID == walletID && t.Type == txnType && t.Status == status {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// --- In-Memory Booking Repo ---

type fakeBookingRepo struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*domain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (r *fakeBookingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeBookingRepo) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
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

func (r *fakeBookingRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
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

type fakeBusinessRepo struct {
	mu         sync.RWMutex
	businesses map[uuid.UUID]*domain.Business
	locations  map[uuid.UUID]*domain.BusinessLocation
}

func newFakeBusinessRepo() *fakeBusinessRepo {
	return &fakeBusinessRepo{
		businesses: make(map[uuid.UUID]*domain.Business),
		locations:  make(map[uuid.UUID]*domain.BusinessLocation),
	}
}

func (r *fakeBusinessRepo) CreateBusiness(ctx context.Context, b *domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

func (r *fakeBusinessRepo) GetBusiness(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBusinessRepo) CreateLocation(ctx context.Context, tx pgx.Tx, l *domain.BusinessLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.locations[l.ID] = &cp
	return nil
}

func (r *fakeBusinessRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.BusinessLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locations[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeBusinessRepo) GetBusinessForLocation(ctx context.Context, locationID uuid.UUID) (*domain.Business, error) {
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

// --- In-Memory Idempotency Repo & Cache ---

type fakeIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *fakeIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.logs[log.Key]; exists {
		return fmt.Errorf("idempotency key already exists")
	}
	r.logs[log.Key] = log
	return nil
}

func (r *fakeIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

type fakeIdempotencyCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{entries: make(map[string][]byte)}
}

func (c *fakeIdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

func (c *fakeIdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// --- Test Fixture ---

// testEnv wires every service against the in-memory repos with a seeded
// business (5% commission) and one location.
type testEnv struct {
	wallets    *fakeWalletRepo
	txns       *fakeTransactionRepo
	bookings   *fakeBookingRepo
	businesses *fakeBusinessRepo
	idemp      *fakeIdempotencyRepo
	cache      *fakeIdempotencyCache

	operatorID uuid.UUID
	business   *domain.Business
	location   *domain.BusinessLocation

	walletSvc     *WalletServiceImpl
	ledgerSvc     *LedgerServiceImpl
	settlementSvc *SettlementServiceImpl
	bookingSvc    *BookingServiceImpl
	businessSvc   *BusinessServiceImpl
}

func newTestEnv() *testEnv {
	env := &testEnv{
		wallets:    newFakeWalletRepo(),
		txns:       newFakeTransactionRepo(),
		bookings:   newFakeBookingRepo(),
		businesses: newFakeBusinessRepo(),
		idemp:      newFakeIdempotencyRepo(),
		cache:      newFakeIdempotencyCache(),
		operatorID: uuid.New(),
	}
	log := newTestLogger()
	transactor := &fakeTransactor{}
	calc := NewCommissionCalculator(env.businesses)

	env.walletSvc = NewWalletService(env.wallets, env.txns, env.idemp, env.cache, transactor, "XAF", log)
	env.ledgerSvc = NewLedgerService(env.wallets, env.txns, env.idemp, env.cache, transactor, log)
	env.settlementSvc = NewSettlementService(env.wallets, env.txns, env.idemp, env.cache, transactor, calc, env.operatorID, "XAF", log)
	env.bookingSvc = NewBookingService(env.bookings, env.txns, env.wallets, env.idemp, env.cache, transactor, calc, env.settlementSvc, log)
	env.businessSvc = NewBusinessService(env.businesses, env.wallets, transactor, "XAF", log)

	now := time.Now().UTC()
	env.business = &domain.Business{
		ID:             uuid.New(),
		Name:           "Mountain Tours",
		CommissionRate: decimal.NewFromInt(5),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	env.location = &domain.BusinessLocation{
		ID:         uuid.New(),
		BusinessID: env.business.ID,
		Name:       "Downtown Branch",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_ = env.businesses.CreateBusiness(context.Background(), env.business)
	_ = env.businesses.CreateLocation(context.Background(), nil, env.location)
	return env
}

// seedWallet creates an active wallet with the given balance.
func (env *testEnv) seedWallet(kind domain.OwnerKind, ownerID uuid.UUID, balance decimal.Decimal) *domain.Wallet {
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerKind: kind,
		OwnerID:   ownerID,
		Balance:   balance,
		Currency:  "XAF",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_ = env.wallets.Create(context.Background(), w)
	return w
}

// --- In-Memory Transactor (no-op tx) ---

type fakeTransactor struct{}

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
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
