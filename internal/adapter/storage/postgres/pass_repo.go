package postgres

import (
	"context"
	"errors"
	"fmt"

	"ghostpass/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PassSessionRepo implements ports.PassSessionRepository.
type PassSessionRepo struct {
	pool Pool
}

// NewPassSessionRepo creates a new PassSessionRepo.
func NewPassSessionRepo(pool Pool) *PassSessionRepo {
	return &PassSessionRepo{pool: pool}
}

const passSessionColumns = `id, wallet_binding_id, wallet_id, is_active, expires_at, created_at`

// GetByWalletBinding fetches a session by its wallet binding id.
func (r *PassSessionRepo) GetByWalletBinding(ctx context.Context, bindingID string) (*domain.PassSession, error) {
	query := `SELECT ` + passSessionColumns + ` FROM pass_sessions WHERE wallet_binding_id = $1`
	return r.scanSession(r.pool.QueryRow(ctx, query, bindingID))
}

// GetByID fetches a session by its raw session id.
func (r *PassSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PassSession, error) {
	query := `SELECT ` + passSessionColumns + ` FROM pass_sessions WHERE id = $1`
	return r.scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *PassSessionRepo) scanSession(row pgx.Row) (*domain.PassSession, error) {
	s := &domain.PassSession{}
	err := row.Scan(&s.ID, &s.WalletBindingID, &s.WalletID, &s.IsActive, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pass session: %w", err)
	}
	return s, nil
}
