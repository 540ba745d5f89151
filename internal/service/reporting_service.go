package service

import (
	"context"
	"fmt"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService: the read-only ledger
// query surface for venue operators and reconciliation tooling.
type reportingService struct {
	ledgerRepo ports.LedgerRepository
	walletRepo ports.WalletRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(ledgerRepo ports.LedgerRepository, walletRepo ports.WalletRepository) ports.ReportingService {
	return &reportingService{
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
	}
}

// ListEntries returns a filtered, paginated slice of the ledger.
func (s *reportingService) ListEntries(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 200 {
		params.PageSize = 50
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

// GetStats returns aggregated settlement totals for a venue and window.
func (s *reportingService) GetStats(ctx context.Context, params ports.LedgerStatsParams) (*ports.LedgerStats, error) {
	stats, err := s.ledgerRepo.GetStats(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("aggregate ledger stats: %w", err))
	}
	return stats, nil
}

// GetWalletBalance returns the current balance of a wallet.
func (s *reportingService) GetWalletBalance(ctx context.Context, walletID uuid.UUID) (int64, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return 0, apperror.ErrEntryNotFound("wallet")
	}
	return wallet.BalanceCents, nil
}
