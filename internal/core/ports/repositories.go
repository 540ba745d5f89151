package ports

import (
	"context"

	"ghostpass/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PassSessionRepository defines read-only access to wallet sessions. The
// engine never mutates sessions; their lifecycle is owned by the wallet
// subsystem.
type PassSessionRepository interface {
	// GetByWalletBinding resolves a session by its wallet binding id.
	GetByWalletBinding(ctx context.Context, bindingID string) (*domain.PassSession, error)
	// GetByID resolves a session by its raw session id.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PassSession, error)
}

// StationRepository defines read access to gateway/station configuration.
type StationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Station, error)
}

// QRAssetRepository defines read access to QR/NFC asset provisioning records.
type QRAssetRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.QRAsset, error)
}

// UserRepository defines read access to wallet-owning users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking; UpdateBalance must only ever run under such a lock.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balanceCents int64) error
}

// LedgerRepository defines persistence for the append-only ledger.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// HasEntryForVenue reports whether the wallet already holds a completed
	// ENTRY or RE_ENTRY at the venue; used to classify re-admissions. Reads
	// through the commit transaction so the check shares the wallet lock's
	// view.
	HasEntryForVenue(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, venueID string) (bool, error)
	// HasRefund reports whether a refund already references the entry.
	HasRefund(ctx context.Context, originalEntryID uuid.UUID) (bool, error)
	// Reporting queries
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context, params LedgerStatsParams) (*LedgerStats, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	WalletID  *uuid.UUID
	VenueID   *string
	StationID *string
	Type      *domain.EntryType
	From      *int64 // Unix timestamp
	To        *int64 // Unix timestamp
	Page      int
	PageSize  int
}

// LedgerStatsParams scopes a stats aggregation.
type LedgerStatsParams struct {
	VenueID *string
	From    *int64
	To      *int64
}

// LedgerStats holds aggregated totals for reporting.
type LedgerStats struct {
	TotalEntries     int64
	Admissions       int64 // ENTRY + RE_ENTRY
	Purchases        int64
	Refunds          int64
	GrossCents       int64 // Sum of debit item amounts
	TaxCents         int64
	PlatformFeeCents int64
	RefundedCents    int64
}

// ProfileRepository defines persistence for revenue and tax profiles.
// Profiles are create-only; an edit is a new row.
type ProfileRepository interface {
	CreateRevenueProfile(ctx context.Context, p *domain.RevenueProfile) error
	GetRevenueProfile(ctx context.Context, id uuid.UUID) (*domain.RevenueProfile, error)
	ListRevenueProfiles(ctx context.Context) ([]domain.RevenueProfile, error)
	CreateTaxProfile(ctx context.Context, p *domain.TaxProfile) error
	GetTaxProfile(ctx context.Context, id uuid.UUID) (*domain.TaxProfile, error)
	ListTaxProfiles(ctx context.Context) ([]domain.TaxProfile, error)
}

// IdempotencyRepository defines durable settlement de-duplication (DB layer
// behind the Redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// AuditRepository defines persistence for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
