package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassSession_Expired_Boundary(t *testing.T) {
	now := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

	exact := now
	s := &PassSession{IsActive: true, ExpiresAt: &exact}
	assert.True(t, s.Expired(now), "expiry exactly at now is inclusive")

	future := now.Add(time.Microsecond)
	s = &PassSession{IsActive: true, ExpiresAt: &future}
	assert.False(t, s.Expired(now), "one microsecond in the future is still valid")

	s = &PassSession{IsActive: true}
	assert.False(t, s.Expired(now), "no expiry set never expires")
}

func TestVerificationTier(t *testing.T) {
	assert.False(t, TierManualLog.RequiresIdentity())
	assert.True(t, TierVerifiedID.RequiresIdentity())
	assert.True(t, TierDeepCheck.RequiresIdentity())

	assert.True(t, TierManualLog.Valid())
	assert.False(t, VerificationTier(0).Valid())
	assert.False(t, VerificationTier(4).Valid())
}

func TestUser_IdentityVerified(t *testing.T) {
	fp := "fp_8842"
	assert.True(t, (&User{FpID: &fp}).IdentityVerified())

	empty := ""
	assert.False(t, (&User{FpID: &empty}).IdentityVerified())
	assert.False(t, (&User{}).IdentityVerified())
}

func TestRevenueProfile_Validate(t *testing.T) {
	p := &RevenueProfile{Name: "house", ValidPct: 30, VendorPct: 30, PoolPct: 30, PromoterPct: 10}
	require.NoError(t, p.Validate())

	// Within tolerance.
	p = &RevenueProfile{Name: "house", ValidPct: 30, VendorPct: 30, PoolPct: 29.995, PromoterPct: 10}
	require.NoError(t, p.Validate())

	// Beyond tolerance.
	p = &RevenueProfile{Name: "house", ValidPct: 30, VendorPct: 30, PoolPct: 29, PromoterPct: 10}
	assert.Error(t, p.Validate())

	// Negative share.
	p = &RevenueProfile{Name: "house", ValidPct: 110, VendorPct: -10}
	assert.Error(t, p.Validate())
}

func TestTaxProfile_Validate(t *testing.T) {
	p := &TaxProfile{Name: "nv", StateTaxPct: 5, LocalTaxPct: 2, AlcoholTaxPct: 3}
	require.NoError(t, p.Validate())

	p = &TaxProfile{Name: "nv", StateTaxPct: 101}
	assert.Error(t, p.Validate())

	p = &TaxProfile{Name: "nv", FoodTaxPct: -1}
	assert.Error(t, p.Validate())
}

func TestSplitBreakdown_Total(t *testing.T) {
	b := SplitBreakdown{ValidCents: 3000, VendorCents: 3000, PoolCents: 3000, PromoterCents: 1000}
	assert.Equal(t, int64(10000), b.Total())
}

func TestLedgerEntry_Balanced(t *testing.T) {
	debit := &LedgerEntry{
		Type:             EntryTypePurchase,
		ItemAmountCents:  10000,
		TaxCents:         700,
		PlatformFeeCents: 50,
		PreBalanceCents:  20000,
		PostBalanceCents: 9250,
	}
	assert.True(t, debit.Balanced())

	debit.PostBalanceCents = 9251
	assert.False(t, debit.Balanced())

	refund := &LedgerEntry{
		Type:             EntryTypeRefund,
		ItemAmountCents:  10000,
		TaxCents:         700,
		PlatformFeeCents: 50,
		PreBalanceCents:  9250,
		PostBalanceCents: 20000,
	}
	assert.True(t, refund.Balanced())
}

func TestLedgerEntry_IsRefundable(t *testing.T) {
	e := &LedgerEntry{Type: EntryTypePurchase, Status: EntryStatusCompleted}
	assert.True(t, e.IsRefundable())

	e.Status = EntryStatusPending
	assert.False(t, e.IsRefundable())

	e = &LedgerEntry{Type: EntryTypeRefund, Status: EntryStatusCompleted}
	assert.False(t, e.IsRefundable())
}

func TestBuildIdempotencyKeys(t *testing.T) {
	walletID := uuid.New()
	entryID := uuid.New()

	assert.Equal(t, walletID.String()+":scan-1", BuildIdempotencyKey(walletID, "scan-1"))
	assert.Equal(t, walletID.String()+":refund:"+entryID.String(), BuildRefundIdempotencyKey(walletID, entryID))
}

func TestEntryType_IsDebit(t *testing.T) {
	assert.True(t, EntryTypeEntry.IsDebit())
	assert.True(t, EntryTypeReEntry.IsDebit())
	assert.True(t, EntryTypePurchase.IsDebit())
	assert.False(t, EntryTypeRefund.IsDebit())
	assert.False(t, EntryTypeTopup.IsDebit())
}
