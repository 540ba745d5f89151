package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ghostpass/internal/core/domain"
	"ghostpass/internal/core/ports/mocks"
	"ghostpass/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newPassValidatorForTest(t *testing.T) (*PassValidatorImpl, *mocks.MockPassSessionRepository) {
	ctrl := gomock.NewController(t)
	sessions := mocks.NewMockPassSessionRepository(ctrl)
	v := NewPassValidator(sessions, zerolog.Nop())
	return v, sessions
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestPassValidator_Resolve_Success(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	future := time.Now().UTC().Add(time.Hour)
	session := &domain.PassSession{
		ID:              uuid.New(),
		WalletBindingID: "wb_123",
		WalletID:        uuid.New(),
		IsActive:        true,
		ExpiresAt:       &future,
	}
	sessions.EXPECT().GetByWalletBinding(ctx, "wb_123").Return(session, nil)

	got, err := v.Resolve(ctx, "wb_123")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestPassValidator_Resolve_FallsBackToSessionID(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	id := uuid.New()
	session := &domain.PassSession{ID: id, WalletID: uuid.New(), IsActive: true}
	sessions.EXPECT().GetByWalletBinding(ctx, id.String()).Return(nil, nil)
	sessions.EXPECT().GetByID(ctx, id).Return(session, nil)

	got, err := v.Resolve(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestPassValidator_Resolve_NotFound(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	sessions.EXPECT().GetByWalletBinding(ctx, "unknown").Return(nil, nil)

	_, err := v.Resolve(ctx, "unknown")
	assert.Equal(t, "PASS_001", appErrCode(t, err))
}

func TestPassValidator_Resolve_InactiveIndistinguishableFromUnknown(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	session := &domain.PassSession{ID: uuid.New(), IsActive: false}
	sessions.EXPECT().GetByWalletBinding(ctx, "wb_revoked").Return(session, nil)

	_, err := v.Resolve(ctx, "wb_revoked")
	assert.Equal(t, "PASS_001", appErrCode(t, err))
}

func TestPassValidator_Resolve_Expired(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	frozen := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return frozen }

	// Expiry exactly at the frozen instant is inclusive.
	expiry := frozen
	session := &domain.PassSession{ID: uuid.New(), IsActive: true, ExpiresAt: &expiry}
	sessions.EXPECT().GetByWalletBinding(ctx, "wb_old").Return(session, nil)

	_, err := v.Resolve(ctx, "wb_old")
	assert.Equal(t, "PASS_002", appErrCode(t, err))
}

func TestPassValidator_Resolve_EmptyToken(t *testing.T) {
	v, _ := newPassValidatorForTest(t)

	_, err := v.Resolve(context.Background(), "")
	assert.Equal(t, "PASS_001", appErrCode(t, err))
}

func TestPassValidator_Resolve_RepoError(t *testing.T) {
	v, sessions := newPassValidatorForTest(t)
	ctx := context.Background()

	sessions.EXPECT().GetByWalletBinding(ctx, "wb_123").Return(nil, errors.New("connection refused"))

	_, err := v.Resolve(ctx, "wb_123")
	assert.Equal(t, "SYS_001", appErrCode(t, err))
}
