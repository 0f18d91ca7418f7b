package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/internal/core/ports/mocks"
	"tuition-ledger/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Login_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)
	expires := time.Now().Add(time.Hour)

	creds.EXPECT().FindByIdentity(gomock.Any(), " v-12345678", "clave123").Return(&domain.CredentialRecord{
		Identifier:    "V-12345678",
		DisplayName:   "María Pérez",
		EnrollmentRef: "M-001",
	}, nil)
	tokens.EXPECT().Generate(ports.Session{
		Identity:      "V-12345678",
		DisplayName:   "María Pérez",
		EnrollmentRef: "M-001",
	}).Return("signed-token", expires, nil)

	svc := NewAuthService(creds, tokens, []string{"V-1"}, newTestLogger())
	res, err := svc.Login(context.Background(), " v-12345678", "clave123")
	require.NoError(t, err)
	assert.Equal(t, "signed-token", res.Token)
	assert.Equal(t, expires, res.ExpiresAt)
	assert.Equal(t, "María Pérez", res.Session.DisplayName)
	assert.False(t, res.Session.Admin)
}

func TestAuthService_Login_Admin(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	creds.EXPECT().FindByIdentity(gomock.Any(), "admin", "x").Return(&domain.CredentialRecord{Identifier: "Admin"}, nil)
	tokens.EXPECT().Generate(gomock.Any()).DoAndReturn(func(s ports.Session) (string, time.Time, error) {
		assert.True(t, s.Admin)
		return "t", time.Now(), nil
	})

	svc := NewAuthService(creds, tokens, []string{" ADMIN ", ""}, newTestLogger())
	res, err := svc.Login(context.Background(), "admin", "x")
	require.NoError(t, err)
	assert.True(t, res.Session.Admin)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	creds.EXPECT().FindByIdentity(gomock.Any(), "V-1", "bad").Return(nil, nil)

	svc := NewAuthService(creds, tokens, nil, newTestLogger())
	res, err := svc.Login(context.Background(), "V-1", "bad")
	assert.Nil(t, res)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCredentials))
}

func TestAuthService_Login_StoreFault(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	creds.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrStorageTimeout(context.DeadlineExceeded))

	svc := NewAuthService(creds, tokens, nil, newTestLogger())
	_, err := svc.Login(context.Background(), "V-1", "a")
	require.Error(t, err)
	assert.True(t, apperror.IsStorageFault(err))
	assert.False(t, apperror.HasCode(err, apperror.CodeInvalidCredentials))
}

func TestAuthService_Login_TokenFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	creds.EXPECT().FindByIdentity(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.CredentialRecord{Identifier: "V-1"}, nil)
	tokens.EXPECT().Generate(gomock.Any()).Return("", time.Time{}, errors.New("signing failed"))

	svc := NewAuthService(creds, tokens, nil, newTestLogger())
	_, err := svc.Login(context.Background(), "V-1", "a")
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	creds := mocks.NewMockCredentialStore(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	creds.EXPECT().Register(gomock.Any(), domain.CredentialRecord{
		Identifier: "V-2", Secret: "s", DisplayName: "Dos", EnrollmentRef: "M-2",
	}).Return(apperror.ErrDuplicateIdentity())

	svc := NewAuthService(creds, tokens, nil, newTestLogger())
	err := svc.Register(context.Background(), ports.RegisterRequest{
		Identifier: "V-2", Secret: "s", DisplayName: "Dos", EnrollmentRef: "M-2",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateIdentity))
}
