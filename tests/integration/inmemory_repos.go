package integration

import (
	"context"
	"fmt"
	"sync"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Pass Session Repo ---

type inMemoryPassRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.PassSession
}

func newInMemoryPassRepo() *inMemoryPassRepo {
	return &inMemoryPassRepo{sessions: make(map[uuid.UUID]*domain.PassSession)}
}

func (r *inMemoryPassRepo) put(s *domain.PassSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *inMemoryPassRepo) GetByWalletBinding(ctx context.Context, bindingID string) (*domain.PassSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.WalletBindingID == bindingID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPassRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PassSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// --- In-Memory Station Repo ---

type inMemoryStationRepo struct {
	mu       sync.RWMutex
	stations map[string]*domain.Station
}

func newInMemoryStationRepo() *inMemoryStationRepo {
	return &inMemoryStationRepo{stations: make(map[string]*domain.Station)}
}

func (r *inMemoryStationRepo) put(s *domain.Station) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations[s.ID] = s
}

func (r *inMemoryStationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stations[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// --- In-Memory QR Asset Repo ---

type inMemoryQRAssetRepo struct {
	mu     sync.RWMutex
	assets map[string]*domain.QRAsset
}

func newInMemoryQRAssetRepo() *inMemoryQRAssetRepo {
	return &inMemoryQRAssetRepo{assets: make(map[string]*domain.QRAsset)}
}

func (r *inMemoryQRAssetRepo) GetByCode(ctx context.Context, code string) (*domain.QRAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[code]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

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
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
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

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balanceCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.BalanceCents = balanceCents
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []*domain.LedgerEntry
	byID    map[uuid.UUID]*domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{byID: make(map[uuid.UUID]*domain.LedgerEntry)}
}

func (r *inMemoryLedgerRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	r.byID[cp.ID] = &cp
	return nil
}

func (r *inMemoryLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *inMemoryLedgerRepo) HasEntryForVenue(ctx context.Context, _ pgx.Tx, walletID uuid.UUID, venueID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.WalletID == walletID && e.VenueID == venueID &&
			(e.Type == domain.EntryTypeEntry || e.Type == domain.EntryTypeReEntry) &&
			e.Status == domain.EntryStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerRepo) HasRefund(ctx context.Context, originalEntryID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Type == domain.EntryTypeRefund && e.OriginalEntryID != nil && *e.OriginalEntryID == originalEntryID {
			return true, nil
		}
	}
	return false, nil
}

func matchesListParams(e *domain.LedgerEntry, params ports.LedgerListParams) bool {
	if params.WalletID != nil && e.WalletID != *params.WalletID {
		return false
	}
	if params.VenueID != nil && e.VenueID != *params.VenueID {
		return false
	}
	if params.StationID != nil && e.StationID != *params.StationID {
		return false
	}
	if params.Type != nil && e.Type != *params.Type {
		return false
	}
	if params.From != nil && e.CreatedAt.Unix() < *params.From {
		return false
	}
	if params.To != nil && e.CreatedAt.Unix() > *params.To {
		return false
	}
	return true
}

func (r *inMemoryLedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first, matching the SQL ORDER BY created_at DESC.
	var result []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if matchesListParams(r.entries[i], params) {
			result = append(result, *r.entries[i])
		}
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryLedgerRepo) GetStats(ctx context.Context, params ports.LedgerStatsParams) (*ports.LedgerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ports.LedgerStats{}
	for _, e := range r.entries {
		if e.Status != domain.EntryStatusCompleted {
			continue
		}
		if params.VenueID != nil && e.VenueID != *params.VenueID {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		stats.TotalEntries++
		switch e.Type {
		case domain.EntryTypeEntry, domain.EntryTypeReEntry:
			stats.Admissions++
		case domain.EntryTypePurchase:
			stats.Purchases++
		case domain.EntryTypeRefund:
			stats.Refunds++
		}
		if e.Type.IsDebit() {
			stats.GrossCents += e.ItemAmountCents
			stats.TaxCents += e.TaxCents
			stats.PlatformFeeCents += e.PlatformFeeCents
		}
		if e.Type == domain.EntryTypeRefund {
			stats.RefundedCents += e.ItemAmountCents
		}
	}
	return stats, nil
}

// --- In-Memory Profile Repo ---

type inMemoryProfileRepo struct {
	mu       sync.RWMutex
	revenues map[uuid.UUID]*domain.RevenueProfile
	taxes    map[uuid.UUID]*domain.TaxProfile
}

func newInMemoryProfileRepo() *inMemoryProfileRepo {
	return &inMemoryProfileRepo{
		revenues: make(map[uuid.UUID]*domain.RevenueProfile),
		taxes:    make(map[uuid.UUID]*domain.TaxProfile),
	}
}

func (r *inMemoryProfileRepo) CreateRevenueProfile(ctx context.Context, p *domain.RevenueProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.revenues[p.ID] = &cp
	return nil
}

func (r *inMemoryProfileRepo) GetRevenueProfile(ctx context.Context, id uuid.UUID) (*domain.RevenueProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.revenues[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryProfileRepo) ListRevenueProfiles(ctx context.Context) ([]domain.RevenueProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.RevenueProfile, 0, len(r.revenues))
	for _, p := range r.revenues {
		result = append(result, *p)
	}
	return result, nil
}

func (r *inMemoryProfileRepo) CreateTaxProfile(ctx context.Context, p *domain.TaxProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.taxes[p.ID] = &cp
	return nil
}

func (r *inMemoryProfileRepo) GetTaxProfile(ctx context.Context, id uuid.UUID) (*domain.TaxProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.taxes[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryProfileRepo) ListTaxProfiles(ctx context.Context) ([]domain.TaxProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.TaxProfile, 0, len(r.taxes))
	for _, p := range r.taxes {
		result = append(result, *p)
	}
	return result, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*domain.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*domain.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.Key] = log
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *inMemoryAuditRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs)
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with a single mutex, standing
// in for the row lock taken by SELECT ... FOR UPDATE. Begin blocks until
// the previous transaction commits or rolls back.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &lockedTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// lockedTx is a pgx.Tx that holds the transactor lock until it is committed
// or rolled back. Release is idempotent so the deferred Rollback after a
// successful Commit is harmless.
type lockedTx struct {
	once    sync.Once
	release func()
}

func (t *lockedTx) done() {
	t.once.Do(t.release)
}

func (t *lockedTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockedTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *lockedTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *lockedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockedTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockedTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockedTx) Conn() *pgx.Conn { return nil }
