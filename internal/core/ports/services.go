package ports

import (
	"context"
	"time"

	"ghostpass/internal/core/domain"

	"github.com/google/uuid"
)

// DecisionStatus is the business outcome of a scan, carried in the response
// body. Callers branch on this field, never on the HTTP status code.
type DecisionStatus string

const (
	DecisionApproved DecisionStatus = "APPROVED"
	DecisionDenied   DecisionStatus = "DENIED"
)

// DenyReason classifies a denial for callers and audit logs.
type DenyReason string

const (
	DenyReasonNone              DenyReason = ""
	DenyReasonInvalidRequest    DenyReason = "INVALID_REQUEST"
	DenyReasonNotFound          DenyReason = "NOT_FOUND"
	DenyReasonExpired           DenyReason = "EXPIRED"
	DenyReasonIdentityRequired  DenyReason = "IDENTITY_REQUIRED"
	DenyReasonInsufficientFunds DenyReason = "INSUFFICIENT_FUNDS"
	DenyReasonConflict          DenyReason = "CONFLICT"
	DenyReasonInternal          DenyReason = "INTERNAL"
)

// ScanRequest holds a validated gateway scan.
type ScanRequest struct {
	PassToken string
	GatewayID string
	VenueID   string
	// PayloadTier is the verification tier claim embedded in the scanned
	// payload at QR-generation time; zero means absent.
	PayloadTier int
	// RequestID is the client-generated idempotency key; optional.
	RequestID string
	// AmountCents, when positive, makes the scan a monetary transaction.
	AmountCents int64
	Flags       domain.ItemFlags
}

// Monetary reports whether the scan carries a transaction to settle.
func (r ScanRequest) Monetary() bool {
	return r.AmountCents > 0
}

// ScanResult is the terminal outcome of the authorization pipeline.
type ScanResult struct {
	Status           DecisionStatus          `json:"status"`
	Reason           DenyReason              `json:"reason,omitempty"`
	Message          string                  `json:"message"`
	ReceiptID        string                  `json:"receipt_id"`
	Tier             domain.VerificationTier `json:"verification_tier,omitempty"`
	IdentityVerified bool                    `json:"identity_verified"`
	Entry            *domain.LedgerEntry     `json:"entry,omitempty"`
	Timestamp        time.Time               `json:"timestamp"`
}

// Admitted reports whether the scan was approved.
func (r *ScanResult) Admitted() bool {
	return r.Status == DecisionApproved
}

// --- Pipeline component ports ---

// PassValidator resolves a presented pass token to an active, non-expired
// session. Denials are returned as apperror codes PASS_001/PASS_002.
type PassValidator interface {
	Resolve(ctx context.Context, passToken string) (*domain.PassSession, error)
}

// TierResolver determines the required verification tier for a gateway.
// It never fails: missing configuration degrades to the default tier.
type TierResolver interface {
	ResolveTier(ctx context.Context, gatewayID string, payloadTier int) domain.VerificationTier
}

// IdentityGate enforces a tier requirement against a session's owning user.
// It returns whether a verified identity credential was confirmed, and an
// IDV_001 apperror when the requirement is not met.
type IdentityGate interface {
	Check(ctx context.Context, session *domain.PassSession, tier domain.VerificationTier) (bool, error)
}

// Settlement is the computed monetary outcome of a scan before commit.
type Settlement struct {
	TaxCents         int64
	PlatformFeeCents int64
	Split            domain.SplitBreakdown
}

// SplitCalculator computes taxes and the five-way revenue split in integer
// minor-currency units with zero leakage.
type SplitCalculator interface {
	Compute(itemAmountCents int64, tax *domain.TaxProfile, rev *domain.RevenueProfile, flags domain.ItemFlags, platformFeeCents int64) (*Settlement, error)
}

// CommitRequest holds validated input for a ledger commit.
type CommitRequest struct {
	WalletID   uuid.UUID
	VenueID    string
	StationID  string
	Type       domain.EntryType
	Amount     int64
	Settlement Settlement
	RequestID  string // optional idempotency key
}

// RefundRequest holds validated input for a compensating refund.
type RefundRequest struct {
	OriginalEntryID uuid.UUID
	Amount          *int64 // nil = full refund of the item amount
	Reason          string
}

// TopupRequest holds validated input for a wallet credit.
type TopupRequest struct {
	WalletID uuid.UUID
	Amount   int64
}

// LedgerService is the LedgerWriter: atomic, per-wallet serialized,
// idempotent commits of balance-consistent entries.
type LedgerService interface {
	Commit(ctx context.Context, req CommitRequest) (*domain.LedgerEntry, error)
	Refund(ctx context.Context, req RefundRequest) (*domain.LedgerEntry, error)
	Topup(ctx context.Context, req TopupRequest) (*domain.LedgerEntry, error)
}

// AuthorizationService orchestrates the scan pipeline. The returned error is
// non-nil only for unexpected internal faults; business denials are encoded
// in the result.
type AuthorizationService interface {
	Authorize(ctx context.Context, req ScanRequest) (*ScanResult, error)
}

// AuditService records decisions and ledger writes, fire-and-forget.
type AuditService interface {
	Record(ctx context.Context, entry *domain.AuditLog)
}

// ProfileStore is the read-side accessor for settlement profiles, backed by
// a cache in front of the repository.
type ProfileStore interface {
	GetRevenueProfile(ctx context.Context, id uuid.UUID) (*domain.RevenueProfile, error)
	GetTaxProfile(ctx context.Context, id uuid.UUID) (*domain.TaxProfile, error)
}

// ProfileService is the management surface for profiles: create-only, the
// 100%-sum invariant enforced at write time.
type ProfileService interface {
	ProfileStore
	CreateRevenueProfile(ctx context.Context, p *domain.RevenueProfile) (*domain.RevenueProfile, error)
	ListRevenueProfiles(ctx context.Context) ([]domain.RevenueProfile, error)
	CreateTaxProfile(ctx context.Context, p *domain.TaxProfile) (*domain.TaxProfile, error)
	ListTaxProfiles(ctx context.Context) ([]domain.TaxProfile, error)
}

// ReportingService exposes the read-only ledger query surface.
type ReportingService interface {
	ListEntries(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context, params LedgerStatsParams) (*LedgerStats, error)
	GetWalletBalance(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// --- Cache ports (Redis layer) ---

// IdempotencyCache is the fast-path settlement de-duplication check in
// front of the durable idempotency log.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// DecisionCache stores serialized scan decisions so a retried request id
// returns the original response. PutIfAbsent keeps the first decision under
// concurrent duplicates.
type DecisionCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// ProfileCache caches serialized revenue/tax profiles. Profiles are
// immutable by construction, so entries only ever expire.
type ProfileCache interface {
	GetRevenue(ctx context.Context, id uuid.UUID) ([]byte, error)
	SetRevenue(ctx context.Context, id uuid.UUID, value []byte, ttl time.Duration) error
	GetTax(ctx context.Context, id uuid.UUID) ([]byte, error)
	SetTax(ctx context.Context, id uuid.UUID, value []byte, ttl time.Duration) error
}
