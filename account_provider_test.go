package authcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	authcore "github.com/ledgerkit/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountTracker implements AccountTracker for testing
type MockAccountTracker struct {
	mock.Mock
}

func (m *MockAccountTracker) GetByUsername(ctx context.Context, username string) (*authcore.Account, error) {
	args := m.Called(ctx, username)

	var account *authcore.Account
	if v := args.Get(0); v != nil {
		account = v.(*authcore.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccountTracker) TrackAttemptedLogin(ctx context.Context, account *authcore.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountTracker) TrackSuccessfulLogin(ctx context.Context, account *authcore.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func storedAccount(t *testing.T, password string) *authcore.Account {
	t.Helper()

	hash, err := authcore.HashPassword(password)
	require.NoError(t, err)

	return &authcore.Account{
		ID:           uuid.New(),
		Username:     "ada",
		Email:        "ada@example.com",
		Role:         authcore.RoleStandard,
		Status:       authcore.AccountStatusActive,
		PasswordSet:  true,
		PasswordHash: hash,
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ada", "Tr1cky&Unique$Phrase")
	require.NoError(t, err)

	assert.Equal(t, account.ID.String(), identity.ID())
	assert.Equal(t, "ada", identity.Username())
	assert.Equal(t, "ada@example.com", identity.Email())
	assert.Equal(t, "standard", identity.Role())

	store.AssertExpectations(t)
}

func TestVerifyIdentityWrongPassword(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()
	store.On("TrackAttemptedLogin", mock.Anything, account).Return(nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ada", "wrong-password")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, authcore.ErrMismatchedHashAndPassword)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
}

func TestVerifyIdentityUnknownUsernameFailsLikeWrongPassword(t *testing.T) {
	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ghost").
		Return(nil, repositoryNotFound()).
		Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ghost", "whatever")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, authcore.ErrMismatchedHashAndPassword)
}

func TestVerifyIdentityStatusGate(t *testing.T) {
	tests := []struct {
		name    string
		status  authcore.AccountStatus
		wantErr error
	}{
		{"Pending account", authcore.AccountStatusPending, authcore.ErrAccountPending},
		{"Suspended account", authcore.AccountStatusSuspended, authcore.ErrAccountSuspended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := storedAccount(t, "Tr1cky&Unique$Phrase")
			account.Status = tt.status

			store := &MockAccountTracker{}
			store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()

			provider := authcore.NewAccountProvider(store)

			identity, err := provider.VerifyIdentity(context.Background(), "ada", "Tr1cky&Unique$Phrase")
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifyIdentityTooManyAttempts(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")
	now := time.Now()
	account.LoginAttempts = authcore.MaxLoginAttempts + 1
	account.LoginAttemptAt = &now

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ada", "Tr1cky&Unique$Phrase")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, authcore.ErrTooManyLoginAttempts)
}

func TestVerifyIdentityCooldownResetsAttempts(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")
	staleAttempt := time.Now().Add(-48 * time.Hour)
	account.LoginAttempts = authcore.MaxLoginAttempts + 3
	account.LoginAttemptAt = &staleAttempt

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ada", "Tr1cky&Unique$Phrase")
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), identity.ID())

	store.AssertExpectations(t)
}

func TestVerifyIdentityInvalidRole(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")
	account.Role = "owner"

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()
	store.On("TrackSuccessfulLogin", mock.Anything, account).Return(nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "ada", "Tr1cky&Unique$Phrase")
	assert.Nil(t, identity)
	assert.Error(t, err)
}

func TestFindIdentityByIdentifier(t *testing.T) {
	account := storedAccount(t, "Tr1cky&Unique$Phrase")

	store := &MockAccountTracker{}
	store.On("GetByUsername", mock.Anything, "ada").Return(account, nil).Once()

	provider := authcore.NewAccountProvider(store)

	identity, err := provider.FindIdentityByIdentifier(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), identity.ID())
	assert.Equal(t, "ada", identity.Username())
}
