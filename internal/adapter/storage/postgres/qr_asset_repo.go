package postgres

import (
	"context"
	"errors"
	"fmt"

	"ghostpass/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// QRAssetRepo implements ports.QRAssetRepository.
type QRAssetRepo struct {
	pool Pool
}

// NewQRAssetRepo creates a new QRAssetRepo.
func NewQRAssetRepo(pool Pool) *QRAssetRepo {
	return &QRAssetRepo{pool: pool}
}

// GetByCode fetches a QR/NFC asset provisioning record by its code.
func (r *QRAssetRepo) GetByCode(ctx context.Context, code string) (*domain.QRAsset, error) {
	query := `SELECT code, required_tier, created_at FROM qr_assets WHERE code = $1`

	a := &domain.QRAsset{}
	var tier *int
	err := r.pool.QueryRow(ctx, query, code).Scan(&a.Code, &tier, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get qr asset by code: %w", err)
	}
	if tier != nil {
		t := domain.VerificationTier(*tier)
		a.RequiredTier = &t
	}
	return a, nil
}
