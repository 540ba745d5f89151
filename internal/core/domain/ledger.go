package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType represents the kind of wallet-affecting transaction.
type EntryType string

const (
	EntryTypeEntry    EntryType = "ENTRY"
	EntryTypeReEntry  EntryType = "RE_ENTRY"
	EntryTypePurchase EntryType = "PURCHASE"
	EntryTypeRefund   EntryType = "REFUND"
	EntryTypeTopup    EntryType = "TOPUP"
)

// IsDebit reports whether the entry type reduces the wallet balance.
func (t EntryType) IsDebit() bool {
	switch t {
	case EntryTypeEntry, EntryTypeReEntry, EntryTypePurchase:
		return true
	}
	return false
}

// EntryStatus is the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusPending   EntryStatus = "pending"
)

// SplitBreakdown is the per-party distribution of an entry's pre-tax
// amount, in minor-currency units. It is a fixed, versioned shape rather
// than an untyped map so downstream consumers never duck-type JSON.
type SplitBreakdown struct {
	ValidCents     int64 `json:"valid_cents"`
	VendorCents    int64 `json:"vendor_cents"`
	PoolCents      int64 `json:"pool_cents"`
	PromoterCents  int64 `json:"promoter_cents"`
	ExecutiveCents int64 `json:"executive_cents"`
}

// Total returns the sum of all party shares.
func (b SplitBreakdown) Total() int64 {
	return b.ValidCents + b.VendorCents + b.PoolCents + b.PromoterCents + b.ExecutiveCents
}

// LedgerEntry is an immutable, balance-consistent record of a
// wallet-affecting transaction. Entries are append-only: a committed entry
// is never edited, only superseded by a compensating REFUND.
type LedgerEntry struct {
	ID               uuid.UUID      `json:"id"`
	WalletID         uuid.UUID      `json:"wallet_id"`
	VenueID          string         `json:"venue_id"`
	StationID        string         `json:"station_id,omitempty"`
	Type             EntryType      `json:"type"`
	ItemAmountCents  int64          `json:"item_amount_cents"`
	TaxCents         int64          `json:"tax_cents"`
	PlatformFeeCents int64          `json:"platform_fee_cents"`
	Split            SplitBreakdown `json:"split_breakdown"`
	PreBalanceCents  int64          `json:"pre_balance_cents"`
	PostBalanceCents int64          `json:"post_balance_cents"`
	Status           EntryStatus    `json:"status"`
	RequestID        string         `json:"request_id,omitempty"`
	OriginalEntryID  *uuid.UUID     `json:"original_entry_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TotalCents is the full wallet impact of the entry: item amount plus tax
// plus platform fee.
func (e *LedgerEntry) TotalCents() int64 {
	return e.ItemAmountCents + e.TaxCents + e.PlatformFeeCents
}

// Balanced verifies the balance invariant:
// post == pre - total for debits, post == pre + total for refunds/topups.
func (e *LedgerEntry) Balanced() bool {
	if e.Type.IsDebit() {
		return e.PostBalanceCents == e.PreBalanceCents-e.TotalCents()
	}
	return e.PostBalanceCents == e.PreBalanceCents+e.TotalCents()
}

// IsRefundable reports whether a compensating refund may reference this
// entry.
func (e *LedgerEntry) IsRefundable() bool {
	return e.Type.IsDebit() && e.Status == EntryStatusCompleted
}

// BuildIdempotencyKey constructs the settlement de-duplication key for a
// client-supplied request id.
func BuildIdempotencyKey(walletID uuid.UUID, requestID string) string {
	return walletID.String() + ":" + requestID
}

// BuildRefundIdempotencyKey constructs the key for refund de-duplication.
func BuildRefundIdempotencyKey(walletID uuid.UUID, originalEntryID uuid.UUID) string {
	return walletID.String() + ":refund:" + originalEntryID.String()
}

// IdempotencyLog is the durable record of a settled request, kept so a
// retried scan returns the original entry instead of double-charging.
type IdempotencyLog struct {
	Key          string    `json:"key"` // "wallet_id:request_id"
	EntryID      uuid.UUID `json:"entry_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}
