package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/pkg/apperror"
	"ghostpass/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService with pessimistic
// per-wallet locking: every balance mutation runs inside a transaction that
// first locks the wallet row, so commits against the same wallet serialize
// and the pre/post balance chain never interleaves.
type LedgerServiceImpl struct {
	ledgerRepo ports.LedgerRepository
	walletRepo ports.WalletRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	maxRetries int
	idempTTL   time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. maxRetries bounds the
// number of attempts for a commit that loses a serialization or deadlock
// race; values below 1 are clamped to 1.
func NewLedgerService(
	ledgerRepo ports.LedgerRepository,
	walletRepo ports.WalletRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	maxRetries int,
	idempTTL time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &LedgerServiceImpl{
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		transactor: transactor,
		maxRetries: maxRetries,
		idempTTL:   idempTTL,
		log:        log,
	}
}

// isRetryableTxError reports whether the transaction failed a concurrency
// race worth retrying: serialization failure (40001) or deadlock (40P01).
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// Commit settles a debit charge atomically: wallet lock, funds check,
// balance update, ledger append and idempotency log in one transaction.
func (s *LedgerServiceImpl) Commit(ctx context.Context, req ports.CommitRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 || req.Settlement.TaxCents < 0 || req.Settlement.PlatformFeeCents < 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Type.IsDebit() {
		return nil, apperror.InternalError(fmt.Errorf("commit requires a debit entry type, got %s", req.Type))
	}
	if total := req.Settlement.Split.Total(); total != req.Amount {
		return nil, apperror.InternalError(fmt.Errorf("split breakdown sums to %d for amount %d", total, req.Amount))
	}

	var idempKey string
	if req.RequestID != "" {
		idempKey = domain.BuildIdempotencyKey(req.WalletID, req.RequestID)

		// Layer 1: Redis idempotency check
		cached, err := s.idempCache.Get(ctx, idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return s.unmarshalCachedEntry(cached)
		}

		// Layer 2: DB idempotency check
		idempLog, err := s.idempRepo.Get(ctx, idempKey)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if idempLog != nil {
			return s.unmarshalCachedEntry(idempLog.ResponseJSON)
		}
	}

	var entry *domain.LedgerEntry
	var respJSON []byte
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		entry, respJSON, err = s.commitOnce(ctx, req, idempKey)
		if err == nil {
			break
		}
		if !isRetryableTxError(err) {
			return nil, err
		}
		metrics.CommitConflictRetries.Inc()
		s.log.Warn().Err(err).
			Str("wallet_id", req.WalletID.String()).
			Int("attempt", attempt).
			Msg("ledger commit lost concurrency race")
	}
	if err != nil {
		return nil, apperror.ErrCommitConflict(err)
	}

	// Post-process: cache in Redis (best-effort)
	if idempKey != "" {
		if cacheErr := s.idempCache.Set(ctx, idempKey, respJSON, s.idempTTL); cacheErr != nil {
			s.log.Warn().Err(cacheErr).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}

	metrics.LedgerCommits.WithLabelValues(string(entry.Type)).Inc()
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", entry.WalletID.String()).
		Str("type", string(entry.Type)).
		Int64("total_cents", entry.TotalCents()).
		Msg("ledger commit settled")

	return entry, nil
}

// commitOnce runs a single attempt of the commit transaction.
func (s *LedgerServiceImpl) commitOnce(ctx context.Context, req ports.CommitRequest, idempKey string) (*domain.LedgerEntry, []byte, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, nil, apperror.ErrEntryNotFound("wallet")
	}

	// Business rule: sufficient funds for the full impact
	total := req.Amount + req.Settlement.TaxCents + req.Settlement.PlatformFeeCents
	if wallet.BalanceCents < total {
		return nil, nil, apperror.ErrInsufficientFunds()
	}

	// A second admission at the same venue settles as RE_ENTRY.
	entryType := req.Type
	if entryType == domain.EntryTypeEntry {
		seen, histErr := s.ledgerRepo.HasEntryForVenue(ctx, dbTx, req.WalletID, req.VenueID)
		if histErr != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("check venue history: %w", histErr))
		}
		if seen {
			entryType = domain.EntryTypeReEntry
		}
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:               uuid.New(),
		WalletID:         wallet.ID,
		VenueID:          req.VenueID,
		StationID:        req.StationID,
		Type:             entryType,
		ItemAmountCents:  req.Amount,
		TaxCents:         req.Settlement.TaxCents,
		PlatformFeeCents: req.Settlement.PlatformFeeCents,
		Split:            req.Settlement.Split,
		PreBalanceCents:  wallet.BalanceCents,
		PostBalanceCents: wallet.BalanceCents - total,
		Status:           domain.EntryStatusCompleted,
		RequestID:        req.RequestID,
		CreatedAt:        now,
	}

	// Persist: update wallet balance
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, entry.PostBalanceCents); err != nil {
		return nil, nil, wrapUnlessRetryable(err, "update balance")
	}

	// Persist: append ledger entry
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, nil, wrapUnlessRetryable(err, "create ledger entry")
	}

	respJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	// Persist: idempotency log inside the same transaction
	if idempKey != "" {
		idempLogEntry := &domain.IdempotencyLog{
			Key:          idempKey,
			EntryID:      entry.ID,
			ResponseJSON: respJSON,
			CreatedAt:    now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, idempLogEntry); err != nil {
			return nil, nil, wrapUnlessRetryable(err, "save idempotency log")
		}
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, nil, wrapUnlessRetryable(err, "commit tx")
	}

	return entry, respJSON, nil
}

// wrapUnlessRetryable keeps serialization/deadlock errors bare so the retry
// loop can classify them; everything else becomes an internal error.
func wrapUnlessRetryable(err error, op string) error {
	if isRetryableTxError(err) {
		return err
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}

// Refund appends a compensating credit for a committed debit entry. A full
// refund restores tax, fee and the original split; a partial refund credits
// only the requested amount, clawed back from the pool share.
func (s *LedgerServiceImpl) Refund(ctx context.Context, req ports.RefundRequest) (*domain.LedgerEntry, error) {
	orig, err := s.ledgerRepo.GetByID(ctx, req.OriginalEntryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find original entry: %w", err))
	}
	if orig == nil {
		return nil, apperror.ErrEntryNotFound("original entry")
	}
	if !orig.IsRefundable() {
		return nil, apperror.ErrNotRefundable()
	}

	idempKey := domain.BuildRefundIdempotencyKey(orig.WalletID, orig.ID)

	// Layer 1: Redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedEntry(cached)
	}

	// Layer 2: DB idempotency check
	idempLog, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return s.unmarshalCachedEntry(idempLog.ResponseJSON)
	}

	// Check no existing refund
	refundExists, err := s.ledgerRepo.HasRefund(ctx, orig.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check refund exists: %w", err))
	}
	if refundExists {
		return nil, apperror.ErrDuplicateRefund()
	}

	// Determine refund amount
	refundAmount := orig.ItemAmountCents
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, apperror.ErrInvalidAmount()
		}
		if *req.Amount > orig.ItemAmountCents {
			return nil, apperror.ErrRefundExceedsOriginal()
		}
		refundAmount = *req.Amount
	}

	var taxCents, feeCents int64
	split := domain.SplitBreakdown{PoolCents: refundAmount}
	if refundAmount == orig.ItemAmountCents {
		taxCents = orig.TaxCents
		feeCents = orig.PlatformFeeCents
		split = orig.Split
	}

	// Begin database transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, orig.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrEntryNotFound("wallet")
	}

	// Re-check under the wallet lock: a concurrent refund of the same entry
	// that won the lock first has already written the idempotency log, and
	// the loser must replay that entry rather than credit twice.
	idempLog, err = s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency re-check: %w", err))
	}
	if idempLog != nil {
		return s.unmarshalCachedEntry(idempLog.ResponseJSON)
	}

	now := time.Now().UTC()
	total := refundAmount + taxCents + feeCents
	entry := &domain.LedgerEntry{
		ID:               uuid.New(),
		WalletID:         wallet.ID,
		VenueID:          orig.VenueID,
		StationID:        orig.StationID,
		Type:             domain.EntryTypeRefund,
		ItemAmountCents:  refundAmount,
		TaxCents:         taxCents,
		PlatformFeeCents: feeCents,
		Split:            split,
		PreBalanceCents:  wallet.BalanceCents,
		PostBalanceCents: wallet.BalanceCents + total,
		Status:           domain.EntryStatusCompleted,
		OriginalEntryID:  &orig.ID,
		CreatedAt:        now,
	}

	// Persist: update wallet balance (ADD back)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, entry.PostBalanceCents); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	// Persist: create refund entry
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create refund entry: %w", err))
	}

	// Persist: idempotency log
	respJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	idempLogEntry := &domain.IdempotencyLog{
		Key:          idempKey,
		EntryID:      entry.ID,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}
	if err := s.idempRepo.Create(ctx, dbTx, idempLogEntry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		if isRetryableTxError(err) {
			return nil, apperror.ErrCommitConflict(err)
		}
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if err := s.idempCache.Set(ctx, idempKey, respJSON, s.idempTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}

	metrics.LedgerCommits.WithLabelValues(string(domain.EntryTypeRefund)).Inc()
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("original_entry_id", orig.ID.String()).
		Int64("refund_cents", refundAmount).
		Msg("refund settled")

	return entry, nil
}

// Topup credits a wallet outside the scan path. Top-ups carry no split and
// no tax; the item amount is the full credit.
func (s *LedgerServiceImpl) Topup(ctx context.Context, req ports.TopupRequest) (*domain.LedgerEntry, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrEntryNotFound("wallet")
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:               uuid.New(),
		WalletID:         wallet.ID,
		Type:             domain.EntryTypeTopup,
		ItemAmountCents:  req.Amount,
		PreBalanceCents:  wallet.BalanceCents,
		PostBalanceCents: wallet.BalanceCents + req.Amount,
		Status:           domain.EntryStatusCompleted,
		CreatedAt:        now,
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, entry.PostBalanceCents); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create topup entry: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	metrics.LedgerCommits.WithLabelValues(string(domain.EntryTypeTopup)).Inc()
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Msg("topup settled")

	return entry, nil
}

// unmarshalCachedEntry deserializes a cached ledger entry.
func (s *LedgerServiceImpl) unmarshalCachedEntry(data []byte) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached entry: %w", err))
	}
	return entry, nil
}
