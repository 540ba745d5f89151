package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTier is the ordinal identity-assurance requirement of a scan
// point. Higher tiers are strictly more demanding.
type VerificationTier int

const (
	// TierManualLog requires no identity credential; the admission is only
	// logged.
	TierManualLog VerificationTier = 1
	// TierVerifiedID requires a verified identity credential on the
	// wallet's owning user.
	TierVerifiedID VerificationTier = 2
	// TierDeepCheck is enforced identically to TierVerifiedID today; the
	// additional checks its name implies are not specified.
	TierDeepCheck VerificationTier = 3
)

// Valid reports whether t is one of the defined tiers.
func (t VerificationTier) Valid() bool {
	return t >= TierManualLog && t <= TierDeepCheck
}

// RequiresIdentity reports whether the tier demands a verified identity
// credential.
func (t VerificationTier) RequiresIdentity() bool {
	return t >= TierVerifiedID
}

// StationKind classifies a scan point. Doors charge admission (ENTRY);
// every other kind settles as PURCHASE.
type StationKind string

const (
	StationKindDoor       StationKind = "door"
	StationKindBar        StationKind = "bar"
	StationKindConcession StationKind = "concession"
	StationKindMerch      StationKind = "merch"
)

// Station is a physical scan point (door, bar, concession, merch) with its
// own verification-tier requirement and settlement configuration.
type Station struct {
	ID               string            `json:"id"`
	VenueID          string            `json:"venue_id"`
	Kind             StationKind       `json:"kind"`
	RequiredTier     *VerificationTier `json:"required_tier,omitempty"`
	RevenueProfileID *uuid.UUID        `json:"revenue_profile_id,omitempty"`
	TaxProfileID     *uuid.UUID        `json:"tax_profile_id,omitempty"`
	PlatformFeeCents int64             `json:"platform_fee_cents"`
	CreatedAt        time.Time         `json:"created_at"`
}

// QRAsset is the provisioning record for a printed/programmed QR or NFC
// asset. Its tier requirement is consulted when the station record carries
// none.
type QRAsset struct {
	Code         string            `json:"code"`
	RequiredTier *VerificationTier `json:"required_tier,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
