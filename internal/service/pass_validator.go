package service

import (
	"context"
	"fmt"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PassValidatorImpl implements ports.PassValidator. Tokens are wallet
// binding ids first; raw session uuids are accepted as a fallback for
// legacy gateway firmware that scans the session id directly.
type PassValidatorImpl struct {
	sessions ports.PassSessionRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewPassValidator creates a new PassValidatorImpl.
func NewPassValidator(sessions ports.PassSessionRepository, log zerolog.Logger) *PassValidatorImpl {
	return &PassValidatorImpl{
		sessions: sessions,
		now:      time.Now,
		log:      log,
	}
}

// Resolve maps a presented token to an active, non-expired session.
// Unknown and inactive passes are deliberately indistinguishable to the
// caller.
func (v *PassValidatorImpl) Resolve(ctx context.Context, passToken string) (*domain.PassSession, error) {
	if passToken == "" {
		return nil, apperror.ErrPassNotFound()
	}

	session, err := v.sessions.GetByWalletBinding(ctx, passToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve wallet binding: %w", err))
	}

	if session == nil {
		if id, parseErr := uuid.Parse(passToken); parseErr == nil {
			session, err = v.sessions.GetByID(ctx, id)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("resolve session id: %w", err))
			}
		}
	}

	if session == nil || !session.IsActive {
		v.log.Debug().Str("token", passToken).Msg("pass not found or inactive")
		return nil, apperror.ErrPassNotFound()
	}

	if session.Expired(v.now().UTC()) {
		v.log.Debug().
			Str("session_id", session.ID.String()).
			Time("expires_at", *session.ExpiresAt).
			Msg("pass expired")
		return nil, apperror.ErrPassExpired()
	}

	return session, nil
}
