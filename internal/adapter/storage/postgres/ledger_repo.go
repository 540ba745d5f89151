package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, wallet_id, venue_id, station_id, type, status, item_amount_cents,
		tax_cents, platform_fee_cents, split_breakdown, pre_balance_cents, post_balance_cents,
		request_id, original_entry_id, created_at`

// Create inserts a ledger entry within a transaction. The split breakdown
// is persisted as JSONB alongside the monetary columns.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	split, err := json.Marshal(e.Split)
	if err != nil {
		return fmt.Errorf("marshal split breakdown: %w", err)
	}

	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.WalletID, e.VenueID, e.StationID, e.Type, e.Status, e.ItemAmountCents,
		e.TaxCents, e.PlatformFeeCents, split, e.PreBalanceCents, e.PostBalanceCents,
		e.RequestID, e.OriginalEntryID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	return scanLedgerEntry(r.pool.QueryRow(ctx, query, id))
}

// HasEntryForVenue reports whether the wallet already holds a completed
// admission (ENTRY or RE_ENTRY) at the venue.
func (r *LedgerRepo) HasEntryForVenue(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, venueID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM ledger_entries
		WHERE wallet_id = $1 AND venue_id = $2
		AND type IN ('ENTRY', 'RE_ENTRY') AND status = 'completed'
	)`

	var exists bool
	if err := tx.QueryRow(ctx, query, walletID, venueID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check venue entry: %w", err)
	}
	return exists, nil
}

// HasRefund reports whether a refund already references the original entry.
func (r *LedgerRepo) HasRefund(ctx context.Context, originalEntryID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM ledger_entries
		WHERE original_entry_id = $1 AND type = 'REFUND'
	)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, originalEntryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing refund: %w", err)
	}
	return exists, nil
}

// List returns a filtered, paginated page of ledger entries plus the total
// count matching the filters.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argIdx := 1

	if params.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
		args = append(args, *params.WalletID)
		argIdx++
	}
	if params.VenueID != nil {
		conditions = append(conditions, fmt.Sprintf("venue_id = $%d", argIdx))
		args = append(args, *params.VenueID)
		argIdx++
	}
	if params.StationID != nil {
		conditions = append(conditions, fmt.Sprintf("station_id = $%d", argIdx))
		args = append(args, *params.StationID)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	for i, c := range conditions {
		if i > 0 {
			where += " AND "
		}
		where += c
	}

	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE ` + where
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT `+ledgerColumns+` FROM ledger_entries WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, total, nil
}

// GetStats aggregates entry counts and monetary totals, optionally scoped
// to a venue and a unix-seconds time window.
func (r *LedgerRepo) GetStats(ctx context.Context, params ports.LedgerStatsParams) (*ports.LedgerStats, error) {
	where := "status = 'completed'"
	args := []any{}
	argIdx := 1

	if params.VenueID != nil {
		where += fmt.Sprintf(" AND venue_id = $%d", argIdx)
		args = append(args, *params.VenueID)
		argIdx++
	}
	if params.From != nil {
		where += fmt.Sprintf(" AND created_at >= to_timestamp($%d)", argIdx)
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		where += fmt.Sprintf(" AND created_at <= to_timestamp($%d)", argIdx)
		args = append(args, *params.To)
		argIdx++
	}

	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE type IN ('ENTRY', 'RE_ENTRY')),
		COUNT(*) FILTER (WHERE type = 'PURCHASE'),
		COUNT(*) FILTER (WHERE type = 'REFUND'),
		COALESCE(SUM(item_amount_cents) FILTER (WHERE type IN ('ENTRY', 'RE_ENTRY', 'PURCHASE')), 0),
		COALESCE(SUM(tax_cents) FILTER (WHERE type IN ('ENTRY', 'RE_ENTRY', 'PURCHASE')), 0),
		COALESCE(SUM(platform_fee_cents) FILTER (WHERE type IN ('ENTRY', 'RE_ENTRY', 'PURCHASE')), 0),
		COALESCE(SUM(item_amount_cents) FILTER (WHERE type = 'REFUND'), 0)
	FROM ledger_entries WHERE ` + where

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalEntries, &stats.Admissions, &stats.Purchases, &stats.Refunds,
		&stats.GrossCents, &stats.TaxCents, &stats.PlatformFeeCents, &stats.RefundedCents,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var split []byte
	err := row.Scan(
		&e.ID, &e.WalletID, &e.VenueID, &e.StationID, &e.Type, &e.Status, &e.ItemAmountCents,
		&e.TaxCents, &e.PlatformFeeCents, &split, &e.PreBalanceCents, &e.PostBalanceCents,
		&e.RequestID, &e.OriginalEntryID, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if len(split) > 0 {
		if err := json.Unmarshal(split, &e.Split); err != nil {
			return nil, fmt.Errorf("unmarshal split breakdown: %w", err)
		}
	}
	return e, nil
}
