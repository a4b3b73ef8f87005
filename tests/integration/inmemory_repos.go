package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[int64]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[int64]*domain.User)}
}

func (r *inMemoryUserRepo) Upsert(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

// --- In-Memory Wallet Repo ---

// inMemoryWalletRepo emulates the row lock taken by SELECT ... FOR UPDATE:
// GetByUserIDForUpdate locks a per-user mutex that is released when the
// surrounding transaction commits or rolls back.
type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[int64]*domain.Wallet
	locks   sync.Map // int64 -> *sync.Mutex
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[int64]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.UserID]; ok {
		return fmt.Errorf("wallet already exists for user %d", w.UserID)
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	muAny, _ := r.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	if mt, ok := tx.(*memTx); ok {
		mt.onClose(mu.Unlock)
	} else {
		mu.Unlock()
	}
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) UpdateBalanceSnapshot(ctx context.Context, userID int64, balance decimal.Decimal, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	w.BalanceCached = balance
	w.BalanceUpdatedAt = &at
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{entries: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	r.entries[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entries[id]
	if !ok || t.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, txHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Status = status
	if txHash != nil {
		t.TxHash = txHash
	}
	if status == domain.TransactionStatusCompleted || status == domain.TransactionStatusFailed {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	return nil
}

func (r *inMemoryTransactionRepo) SumCompleted(ctx context.Context, userID int64) (*ports.LedgerTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.LedgerTotals{Deposited: decimal.Zero, Withdrawn: decimal.Zero}
	for _, t := range r.entries {
		if t.UserID != userID || !t.CountsTowardBalance() {
			continue
		}
		switch t.Kind {
		case domain.TransactionKindDeposit:
			totals.Deposited = totals.Deposited.Add(t.Amount)
		case domain.TransactionKindWithdrawal:
			totals.Withdrawn = totals.Withdrawn.Add(t.Amount)
		}
	}
	return totals, nil
}

func (r *inMemoryTransactionRepo) SumForWithdrawal(ctx context.Context, tx pgx.Tx, userID int64) (*ports.WithdrawalTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.WithdrawalTotals{Deposited: decimal.Zero, Withdrawn: decimal.Zero, Open: decimal.Zero}
	for _, t := range r.entries {
		if t.UserID != userID {
			continue
		}
		switch {
		case t.Kind == domain.TransactionKindDeposit && t.Status == domain.TransactionStatusCompleted:
			totals.Deposited = totals.Deposited.Add(t.Amount)
		case t.Kind == domain.TransactionKindWithdrawal && t.Status == domain.TransactionStatusCompleted:
			totals.Withdrawn = totals.Withdrawn.Add(t.Amount)
		case t.Kind == domain.TransactionKindWithdrawal &&
			(t.Status == domain.TransactionStatusPending || t.Status == domain.TransactionStatusProcessing):
			totals.Open = totals.Open.Add(t.Amount)
		}
	}
	return totals, nil
}

func (r *inMemoryTransactionRepo) ExistsByTxHash(ctx context.Context, userID int64, txHash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.entries {
		if t.UserID == userID && t.TxHash != nil && *t.TxHash == txHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.entries {
		if t.UserID == userID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if offset >= len(result) {
		return []domain.Transaction{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *inMemoryTransactionRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.entries {
		if t.UserID == userID && t.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

// --- In-Memory Compliance Repo ---

type inMemoryComplianceRepo struct {
	mu      sync.RWMutex
	records map[int64]*domain.ComplianceRecord
}

func newInMemoryComplianceRepo() *inMemoryComplianceRepo {
	return &inMemoryComplianceRepo{records: make(map[int64]*domain.ComplianceRecord)}
}

func (r *inMemoryComplianceRepo) put(record *domain.ComplianceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.UserID] = record
}

func (r *inMemoryComplianceRepo) GetByUserID(ctx context.Context, userID int64) (*domain.ComplianceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *rec
	return &cp, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu       sync.RWMutex
	logs     []domain.AuditLog
	security []domain.SecurityLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *inMemoryAuditRepo) CreateSecurity(ctx context.Context, entry *domain.SecurityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.security = append(r.security, *entry)
	return nil
}

func (r *inMemoryAuditRepo) ListSecurity(ctx context.Context, blocked *bool, limit int) ([]domain.SecurityLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.SecurityLog
	for _, s := range r.security {
		if blocked != nil && s.Blocked != *blocked {
			continue
		}
		result = append(result, s)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *inMemoryAuditRepo) securityLogs() []domain.SecurityLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.SecurityLog(nil), r.security...)
}

// --- In-Memory Job Repo ---

type inMemoryJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

func newInMemoryJobRepo() *inMemoryJobRepo {
	return &inMemoryJobRepo{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (r *inMemoryJobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *inMemoryJobRepo) GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *j
	return &cp, nil
}

func (r *inMemoryJobRepo) ClaimNext(ctx context.Context, jobType domain.JobType) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidates []*domain.Job
	now := time.Now()
	for _, j := range r.jobs {
		if j.Type != jobType {
			continue
		}
		if j.Status != domain.JobStatusPending && j.Status != domain.JobStatusRetrying {
			continue
		}
		if j.ScheduledFor.After(now) {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[k].CreatedAt)
	})
	claimed := candidates[0]
	claimed.Status = domain.JobStatusProcessing
	cp := *claimed
	return &cp, nil
}

func (r *inMemoryJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(id, domain.JobStatusCompleted, nil, nil)
}

func (r *inMemoryJobRepo) MarkRetrying(ctx context.Context, id uuid.UUID, attempts int, scheduledFor time.Time, lastError string) error {
	return r.setStatus(id, domain.JobStatusRetrying, &attempts, &lastError, scheduledFor)
}

func (r *inMemoryJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	return r.setStatus(id, domain.JobStatusFailed, &attempts, &lastError)
}

func (r *inMemoryJobRepo) setStatus(id uuid.UUID, status domain.JobStatus, attempts *int, lastError *string, scheduledFor ...time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	j.Status = status
	if attempts != nil {
		j.Attempts = *attempts
	}
	if lastError != nil {
		j.LastError = lastError
	}
	if len(scheduledFor) > 0 {
		j.ScheduledFor = scheduledFor[0]
	}
	return nil
}

func (r *inMemoryJobRepo) CancelPending(ctx context.Context, userID int64, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.UserID != userID || j.Status != domain.JobStatusPending {
		return false, nil
	}
	j.Status = domain.JobStatusFailed
	reason := "cancelled by owner"
	j.LastError = &reason
	return true, nil
}

func (r *inMemoryJobRepo) get(id uuid.UUID) *domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// --- In-Memory Transactor ---

// inMemoryTransactor hands out transactions that carry release hooks, so
// repos can emulate FOR UPDATE row locks held until commit or rollback.
type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

type memTx struct {
	mu      sync.Mutex
	closed  bool
	closers []func()
}

func (t *memTx) onClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closers = append(t.closers, fn)
}

func (t *memTx) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
	t.closers = nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.close(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.close(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
