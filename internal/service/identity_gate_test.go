package service

import (
	"context"
	"errors"
	"testing"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newIdentityGateForTest(t *testing.T) (*IdentityGateImpl, *mocks.MockWalletRepository, *mocks.MockUserRepository) {
	ctrl := gomock.NewController(t)
	wallets := mocks.NewMockWalletRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	return NewIdentityGate(wallets, users, zerolog.Nop()), wallets, users
}

func TestIdentityGate_Tier1FastPath(t *testing.T) {
	g, _, _ := newIdentityGateForTest(t)

	verified, err := g.Check(context.Background(), &domain.PassSession{WalletID: uuid.New()}, domain.TierManualLog)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestIdentityGate_VerifiedUser(t *testing.T) {
	g, wallets, users := newIdentityGateForTest(t)
	ctx := context.Background()

	walletID := uuid.New()
	userID := uuid.New()
	fp := "fp_9f2c"
	session := &domain.PassSession{ID: uuid.New(), WalletID: walletID}

	wallets.EXPECT().GetByID(ctx, walletID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	users.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, FpID: &fp}, nil)

	verified, err := g.Check(ctx, session, domain.TierVerifiedID)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestIdentityGate_UnverifiedUserDenied(t *testing.T) {
	g, wallets, users := newIdentityGateForTest(t)
	ctx := context.Background()

	walletID := uuid.New()
	userID := uuid.New()
	session := &domain.PassSession{ID: uuid.New(), WalletID: walletID}

	wallets.EXPECT().GetByID(ctx, walletID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	users.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID}, nil)

	verified, err := g.Check(ctx, session, domain.TierVerifiedID)
	assert.False(t, verified)
	assert.Equal(t, "IDV_001", appErrCode(t, err))
}

func TestIdentityGate_Tier3EnforcedLikeTier2(t *testing.T) {
	g, wallets, users := newIdentityGateForTest(t)
	ctx := context.Background()

	walletID := uuid.New()
	userID := uuid.New()
	session := &domain.PassSession{ID: uuid.New(), WalletID: walletID}

	wallets.EXPECT().GetByID(ctx, walletID).Return(&domain.Wallet{ID: walletID, UserID: userID}, nil)
	users.EXPECT().GetByID(ctx, userID).Return(nil, nil)

	verified, err := g.Check(ctx, session, domain.TierDeepCheck)
	assert.False(t, verified)
	assert.Equal(t, "IDV_001", appErrCode(t, err))
}

func TestIdentityGate_MissingWalletFailsRequirement(t *testing.T) {
	g, wallets, _ := newIdentityGateForTest(t)
	ctx := context.Background()

	walletID := uuid.New()
	session := &domain.PassSession{ID: uuid.New(), WalletID: walletID}
	wallets.EXPECT().GetByID(ctx, walletID).Return(nil, nil)

	_, err := g.Check(ctx, session, domain.TierVerifiedID)
	assert.Equal(t, "IDV_001", appErrCode(t, err))
}

func TestIdentityGate_StorageError(t *testing.T) {
	g, wallets, _ := newIdentityGateForTest(t)
	ctx := context.Background()

	walletID := uuid.New()
	session := &domain.PassSession{ID: uuid.New(), WalletID: walletID}
	wallets.EXPECT().GetByID(ctx, walletID).Return(nil, errors.New("connection reset"))

	_, err := g.Check(ctx, session, domain.TierVerifiedID)
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}
