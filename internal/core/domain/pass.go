package domain

import (
	"time"

	"github.com/google/uuid"
)

// PassSession is the wallet-bound bearer credential presented at a gateway.
// The session lifecycle (creation, revocation) is owned by the wallet
// subsystem; the engine only reads it.
type PassSession struct {
	ID              uuid.UUID  `json:"id"`
	WalletBindingID string     `json:"wallet_binding_id"`
	WalletID        uuid.UUID  `json:"wallet_id"`
	IsActive        bool       `json:"is_active"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given
// instant. The boundary is inclusive: a session expiring exactly now is
// already expired. Expiry is independent of the active flag.
func (s *PassSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// Wallet is the mutable balance holder behind a pass. Balance is kept in
// integer minor-currency units and only ever changes inside a ledger commit.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// User is the wallet's owning identity. FpID is the verified identity
// credential required by tiers 2 and above.
type User struct {
	ID        uuid.UUID `json:"id"`
	FpID      *string   `json:"fp_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityVerified reports whether the user holds a verified identity
// credential.
func (u *User) IdentityVerified() bool {
	return u.FpID != nil && *u.FpID != ""
}
