package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports"
	"ghostpass/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type ledgerDeps struct {
	ledgerRepo *mocks.MockLedgerRepository
	walletRepo *mocks.MockWalletRepository
	idempRepo  *mocks.MockIdempotencyRepository
	idempCache *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
}

func newLedgerServiceForTest(t *testing.T, maxRetries int) (*LedgerServiceImpl, ledgerDeps) {
	ctrl := gomock.NewController(t)
	d := ledgerDeps{
		ledgerRepo: mocks.NewMockLedgerRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		idempRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
	}
	svc := NewLedgerService(d.ledgerRepo, d.walletRepo, d.idempRepo, d.idempCache, d.transactor, maxRetries, 24*time.Hour, zerolog.Nop())
	return svc, d
}

func standardCommitRequest(walletID uuid.UUID) ports.CommitRequest {
	return ports.CommitRequest{
		WalletID:  walletID,
		VenueID:   "venue-1",
		StationID: "gate-7",
		Type:      domain.EntryTypeEntry,
		Amount:    10000,
		Settlement: ports.Settlement{
			TaxCents:         700,
			PlatformFeeCents: 50,
			Split:            domain.SplitBreakdown{ValidCents: 3000, VendorCents: 3000, PoolCents: 3000, PromoterCents: 1000},
		},
		RequestID: "scan-1",
	}
}

func TestLedgerService_Commit_Success(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")
	wallet := &domain.Wallet{ID: walletID, UserID: uuid.New(), BalanceCents: 20000}

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().HasEntryForVenue(ctx, tx, walletID, "venue-1").Return(false, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(9250)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), 24*time.Hour).Return(nil)

	entry, err := svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeEntry, entry.Type)
	assert.Equal(t, int64(20000), entry.PreBalanceCents)
	assert.Equal(t, int64(9250), entry.PostBalanceCents)
	assert.Equal(t, domain.EntryStatusCompleted, entry.Status)
	assert.True(t, entry.Balanced())
	assert.Equal(t, req.Amount, entry.Split.Total())
}

func TestLedgerService_Commit_PromotesReEntry(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 50000}

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().HasEntryForVenue(ctx, tx, walletID, "venue-1").Return(true, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(39250)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), gomock.Any()).Return(nil)

	entry, err := svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeReEntry, entry.Type)
}

func TestLedgerService_Commit_InsufficientFunds(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")
	// Balance covers the item amount but not tax + fee.
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 10500}

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)

	_, err := svc.Commit(ctx, req)
	assert.Equal(t, "LED_001", appErrCode(t, err))
}

func TestLedgerService_Commit_IdempotentReplayFromCache(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")

	cached := &domain.LedgerEntry{ID: uuid.New(), WalletID: walletID, Type: domain.EntryTypeEntry, ItemAmountCents: 10000}
	cachedJSON, _ := json.Marshal(cached)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cachedJSON, nil)

	entry, err := svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cached.ID, entry.ID)
}

func TestLedgerService_Commit_IdempotentReplayFromDB(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")

	stored := &domain.LedgerEntry{ID: uuid.New(), WalletID: walletID, Type: domain.EntryTypeEntry, ItemAmountCents: 10000}
	storedJSON, _ := json.Marshal(stored)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(&domain.IdempotencyLog{Key: idempKey, EntryID: stored.ID, ResponseJSON: storedJSON}, nil)

	entry, err := svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, entry.ID)
}

func TestLedgerService_Commit_SplitMismatchRejected(t *testing.T) {
	svc, _ := newLedgerServiceForTest(t, 3)

	req := standardCommitRequest(uuid.New())
	req.Settlement.Split.PoolCents -= 1

	_, err := svc.Commit(context.Background(), req)
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}

func TestLedgerService_Commit_RetriesSerializationFailure(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	idempKey := domain.BuildIdempotencyKey(walletID, "scan-1")
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 20000}
	serErr := &pgconn.PgError{Code: "40001"}

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)

	// First attempt loses the race on the balance update.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().HasEntryForVenue(ctx, tx, walletID, "venue-1").Return(false, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(9250)).Return(serErr)

	// Second attempt succeeds.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.ledgerRepo.EXPECT().HasEntryForVenue(ctx, tx, walletID, "venue-1").Return(false, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(9250)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), gomock.Any()).Return(nil)

	entry, err := svc.Commit(ctx, req)
	require.NoError(t, err)
	assert.True(t, entry.Balanced())
}

func TestLedgerService_Commit_ConflictAfterExhaustedRetries(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 2)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	req := standardCommitRequest(walletID)
	req.RequestID = ""
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 20000}
	deadlock := &pgconn.PgError{Code: "40P01"}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil).Times(2)
	d.ledgerRepo.EXPECT().HasEntryForVenue(ctx, tx, walletID, "venue-1").Return(false, nil).Times(2)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(9250)).Return(deadlock).Times(2)

	_, err := svc.Commit(ctx, req)
	assert.Equal(t, "LED_002", appErrCode(t, err))
}

func TestLedgerService_Commit_InvalidInput(t *testing.T) {
	svc, _ := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	req := standardCommitRequest(uuid.New())
	req.Amount = 0
	_, err := svc.Commit(ctx, req)
	assert.Equal(t, "LED_006", appErrCode(t, err))

	req = standardCommitRequest(uuid.New())
	req.Type = domain.EntryTypeRefund
	_, err = svc.Commit(ctx, req)
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}

func refundOriginal(walletID uuid.UUID) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:               uuid.New(),
		WalletID:         walletID,
		VenueID:          "venue-1",
		StationID:        "bar-2",
		Type:             domain.EntryTypePurchase,
		ItemAmountCents:  10000,
		TaxCents:         700,
		PlatformFeeCents: 50,
		Split:            domain.SplitBreakdown{ValidCents: 3000, VendorCents: 3000, PoolCents: 3000, PromoterCents: 1000},
		PreBalanceCents:  20000,
		PostBalanceCents: 9250,
		Status:           domain.EntryStatusCompleted,
	}
}

func TestLedgerService_Refund_FullRestoresEverything(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	orig := refundOriginal(walletID)
	idempKey := domain.BuildRefundIdempotencyKey(walletID, orig.ID)
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 9250}

	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil).Times(2)
	d.ledgerRepo.EXPECT().HasRefund(ctx, orig.ID).Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(20000)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), gomock.Any()).Return(nil)

	entry, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeRefund, entry.Type)
	assert.Equal(t, orig.TaxCents, entry.TaxCents)
	assert.Equal(t, orig.PlatformFeeCents, entry.PlatformFeeCents)
	assert.Equal(t, orig.Split, entry.Split)
	assert.Equal(t, &orig.ID, entry.OriginalEntryID)
	assert.True(t, entry.Balanced())
}

func TestLedgerService_Refund_PartialClawsBackFromPool(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	orig := refundOriginal(walletID)
	idempKey := domain.BuildRefundIdempotencyKey(walletID, orig.ID)
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 9250}
	amount := int64(4000)

	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil).Times(2)
	d.ledgerRepo.EXPECT().HasRefund(ctx, orig.ID).Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(13250)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), gomock.Any()).Return(nil)

	entry, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), entry.ItemAmountCents)
	assert.Equal(t, int64(0), entry.TaxCents)
	assert.Equal(t, int64(0), entry.PlatformFeeCents)
	assert.Equal(t, domain.SplitBreakdown{PoolCents: 4000}, entry.Split)
	assert.True(t, entry.Balanced())
}

func TestLedgerService_Refund_Duplicate(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	walletID := uuid.New()
	orig := refundOriginal(walletID)
	idempKey := domain.BuildRefundIdempotencyKey(walletID, orig.ID)

	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.ledgerRepo.EXPECT().HasRefund(ctx, orig.ID).Return(true, nil)

	_, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID})
	assert.Equal(t, "LED_003", appErrCode(t, err))
}

// A refund that loses the wallet lock to a concurrent refund of the same
// entry must replay the winner's entry, not write a second credit.
func TestLedgerService_Refund_ConcurrentLoserReplaysWinner(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	orig := refundOriginal(walletID)
	idempKey := domain.BuildRefundIdempotencyKey(walletID, orig.ID)
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 20000}

	winner := &domain.LedgerEntry{
		ID:              uuid.New(),
		WalletID:        walletID,
		Type:            domain.EntryTypeRefund,
		ItemAmountCents: orig.ItemAmountCents,
		Status:          domain.EntryStatusCompleted,
		OriginalEntryID: &orig.ID,
	}
	winnerJSON, err := json.Marshal(winner)
	require.NoError(t, err)

	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	// Before the lock the winner has not committed yet; under the lock its
	// idempotency log is visible.
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.ledgerRepo.EXPECT().HasRefund(ctx, orig.ID).Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).
		Return(&domain.IdempotencyLog{Key: idempKey, EntryID: winner.ID, ResponseJSON: winnerJSON}, nil)

	entry, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, entry.ID)
}

func TestLedgerService_Refund_ExceedsOriginal(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	walletID := uuid.New()
	orig := refundOriginal(walletID)
	idempKey := domain.BuildRefundIdempotencyKey(walletID, orig.ID)
	amount := int64(10001)

	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.ledgerRepo.EXPECT().HasRefund(ctx, orig.ID).Return(false, nil)

	_, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID, Amount: &amount})
	assert.Equal(t, "LED_005", appErrCode(t, err))
}

func TestLedgerService_Refund_NotRefundable(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	orig := refundOriginal(uuid.New())
	orig.Type = domain.EntryTypeRefund
	d.ledgerRepo.EXPECT().GetByID(ctx, orig.ID).Return(orig, nil)

	_, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: orig.ID})
	assert.Equal(t, "LED_007", appErrCode(t, err))
}

func TestLedgerService_Refund_OriginalNotFound(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()

	id := uuid.New()
	d.ledgerRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := svc.Refund(ctx, ports.RefundRequest{OriginalEntryID: id})
	assert.Equal(t, "LED_004", appErrCode(t, err))
}

func TestLedgerService_Topup_Success(t *testing.T) {
	svc, d := newLedgerServiceForTest(t, 3)
	ctx := context.Background()
	tx := &mockTx{}

	walletID := uuid.New()
	wallet := &domain.Wallet{ID: walletID, BalanceCents: 1000}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, walletID).Return(wallet, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(6000)).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	entry, err := svc.Topup(ctx, ports.TopupRequest{WalletID: walletID, Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeTopup, entry.Type)
	assert.Equal(t, int64(6000), entry.PostBalanceCents)
	assert.True(t, entry.Balanced())
}

func TestLedgerService_Topup_InvalidAmount(t *testing.T) {
	svc, _ := newLedgerServiceForTest(t, 3)

	_, err := svc.Topup(context.Background(), ports.TopupRequest{WalletID: uuid.New(), Amount: 0})
	assert.Equal(t, "LED_006", appErrCode(t, err))
}
