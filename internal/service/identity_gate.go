package service

import (
	"context"
	"fmt"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"

	"github.com/rs/zerolog"
)

// IdentityGateImpl implements ports.IdentityGate. Tier 1 passes through
// without touching storage; higher tiers require a verified identity
// credential on the wallet's owning user. A missing wallet or user row
// fails the requirement rather than the request.
type IdentityGateImpl struct {
	wallets ports.WalletRepository
	users   ports.UserRepository
	log     zerolog.Logger
}

// NewIdentityGate creates a new IdentityGateImpl.
func NewIdentityGate(wallets ports.WalletRepository, users ports.UserRepository, log zerolog.Logger) *IdentityGateImpl {
	return &IdentityGateImpl{
		wallets: wallets,
		users:   users,
		log:     log,
	}
}

// Check enforces the tier requirement against the session's owning user.
// The boolean reports whether a verified credential was confirmed, which
// stays false on the tier-1 fast path.
func (g *IdentityGateImpl) Check(ctx context.Context, session *domain.PassSession, tier domain.VerificationTier) (bool, error) {
	if !tier.RequiresIdentity() {
		return false, nil
	}

	wallet, err := g.wallets.GetByID(ctx, session.WalletID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		g.log.Warn().
			Str("session_id", session.ID.String()).
			Str("wallet_id", session.WalletID.String()).
			Msg("session references missing wallet")
		return false, apperror.ErrIdentityRequired(int(tier))
	}

	user, err := g.users.GetByID(ctx, wallet.UserID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil || !user.IdentityVerified() {
		return false, apperror.ErrIdentityRequired(int(tier))
	}

	return true, nil
}
