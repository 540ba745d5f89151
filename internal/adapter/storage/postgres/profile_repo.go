package postgres

import (
	"context"
	"errors"
	"fmt"

	"ghostpass/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ports.ProfileRepository for both revenue and tax
// profiles.
type ProfileRepo struct {
	pool Pool
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(pool Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// CreateRevenueProfile inserts a revenue split profile.
func (r *ProfileRepo) CreateRevenueProfile(ctx context.Context, p *domain.RevenueProfile) error {
	query := `INSERT INTO revenue_profiles (id, name, valid_pct, vendor_pct, pool_pct, promoter_pct, executive_pct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.ValidPct, p.VendorPct, p.PoolPct, p.PromoterPct, p.ExecutivePct, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert revenue profile: %w", err)
	}
	return nil
}

// GetRevenueProfile fetches a revenue profile by UUID.
func (r *ProfileRepo) GetRevenueProfile(ctx context.Context, id uuid.UUID) (*domain.RevenueProfile, error) {
	query := `SELECT id, name, valid_pct, vendor_pct, pool_pct, promoter_pct, executive_pct, created_at
		FROM revenue_profiles WHERE id = $1`

	return scanRevenueProfile(r.pool.QueryRow(ctx, query, id))
}

// ListRevenueProfiles returns all revenue profiles, newest first.
func (r *ProfileRepo) ListRevenueProfiles(ctx context.Context) ([]domain.RevenueProfile, error) {
	query := `SELECT id, name, valid_pct, vendor_pct, pool_pct, promoter_pct, executive_pct, created_at
		FROM revenue_profiles ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list revenue profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.RevenueProfile{}
	for rows.Next() {
		p, err := scanRevenueProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue profiles: %w", err)
	}
	return profiles, nil
}

// CreateTaxProfile inserts a tax profile.
func (r *ProfileRepo) CreateTaxProfile(ctx context.Context, p *domain.TaxProfile) error {
	query := `INSERT INTO tax_profiles (id, name, state_tax_pct, local_tax_pct, alcohol_tax_pct, food_tax_pct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.StateTaxPct, p.LocalTaxPct, p.AlcoholTaxPct, p.FoodTaxPct, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tax profile: %w", err)
	}
	return nil
}

// GetTaxProfile fetches a tax profile by UUID.
func (r *ProfileRepo) GetTaxProfile(ctx context.Context, id uuid.UUID) (*domain.TaxProfile, error) {
	query := `SELECT id, name, state_tax_pct, local_tax_pct, alcohol_tax_pct, food_tax_pct, created_at
		FROM tax_profiles WHERE id = $1`

	return scanTaxProfile(r.pool.QueryRow(ctx, query, id))
}

// ListTaxProfiles returns all tax profiles, newest first.
func (r *ProfileRepo) ListTaxProfiles(ctx context.Context) ([]domain.TaxProfile, error) {
	query := `SELECT id, name, state_tax_pct, local_tax_pct, alcohol_tax_pct, food_tax_pct, created_at
		FROM tax_profiles ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tax profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.TaxProfile{}
	for rows.Next() {
		p, err := scanTaxProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax profiles: %w", err)
	}
	return profiles, nil
}

func scanRevenueProfile(row pgx.Row) (*domain.RevenueProfile, error) {
	p := &domain.RevenueProfile{}
	err := row.Scan(&p.ID, &p.Name, &p.ValidPct, &p.VendorPct, &p.PoolPct, &p.PromoterPct, &p.ExecutivePct, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan revenue profile: %w", err)
	}
	return p, nil
}

func scanTaxProfile(row pgx.Row) (*domain.TaxProfile, error) {
	p := &domain.TaxProfile{}
	err := row.Scan(&p.ID, &p.Name, &p.StateTaxPct, &p.LocalTaxPct, &p.AlcoholTaxPct, &p.FoodTaxPct, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tax profile: %w", err)
	}
	return p, nil
}
