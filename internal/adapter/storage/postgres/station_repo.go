package postgres

import (
	"context"
	"errors"
	"fmt"

	"ghostpass/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// StationRepo implements ports.StationRepository.
type StationRepo struct {
	pool Pool
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(pool Pool) *StationRepo {
	return &StationRepo{pool: pool}
}

// GetByID fetches a station's configuration by its gateway id.
func (r *StationRepo) GetByID(ctx context.Context, id string) (*domain.Station, error) {
	query := `SELECT id, venue_id, kind, required_tier, revenue_profile_id, tax_profile_id, platform_fee_cents, created_at
		FROM stations WHERE id = $1`

	s := &domain.Station{}
	var tier *int
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.VenueID, &s.Kind, &tier,
		&s.RevenueProfileID, &s.TaxProfileID, &s.PlatformFeeCents, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get station by id: %w", err)
	}
	if tier != nil {
		t := domain.VerificationTier(*tier)
		s.RequiredTier = &t
	}
	return s, nil
}
