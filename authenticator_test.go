package authcore_test

import (
	"context"
	"testing"
	"time"

	authcore "github.com/ledgerkit/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func (c testConfig) GetSigningKey() string           { return c.signingKey }
func (c testConfig) GetSigningMethod() string        { return "HS256" }
func (c testConfig) GetContextKey() string           { return "account" }
func (c testConfig) GetTokenExpiration() int         { return c.tokenExpiration }
func (c testConfig) GetExtendedTokenDuration() int   { return 0 }
func (c testConfig) GetTokenLookup() string          { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string           { return "Bearer" }
func (c testConfig) GetIssuer() string               { return c.issuer }
func (c testConfig) GetAudience() []string           { return c.audience }
func (c testConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (c testConfig) GetRejectedRouteDefault() string { return "/" }

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 1,
		issuer:          "authcore-test",
		audience:        []string{"expense-app"},
	}
}

// testIdentity is a status-aware identity stub.
type testIdentity struct {
	id       string
	username string
	email    string
	role     string
	status   authcore.AccountStatus
}

func (i *testIdentity) ID() string                     { return i.id }
func (i *testIdentity) Username() string               { return i.username }
func (i *testIdentity) Email() string                  { return i.email }
func (i *testIdentity) Role() string                   { return i.role }
func (i *testIdentity) Status() authcore.AccountStatus { return i.status }

func activeIdentity() *testIdentity {
	return &testIdentity{
		id:       "5f8e61c2-8a47-4a2b-91be-f58a71f33c91",
		username: "ada",
		email:    "ada@example.com",
		role:     "standard",
		status:   authcore.AccountStatusActive,
	}
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (authcore.Identity, error) {
	args := m.Called(ctx, identifier, password)

	var identity authcore.Identity
	if v := args.Get(0); v != nil {
		identity = v.(authcore.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (authcore.Identity, error) {
	args := m.Called(ctx, identifier)

	var identity authcore.Identity
	if v := args.Get(0); v != nil {
		identity = v.(authcore.Identity)
	}
	return identity, args.Error(1)
}

func TestLoginSuccess(t *testing.T) {
	identity := activeIdentity()

	provider := &MockIdentityProvider{}
	provider.On("VerifyIdentity", mock.Anything, "ada", "Tr1cky&Unique$Phrase").
		Return(identity, nil).
		Once()

	auther := authcore.NewAuthenticator(provider, newTestConfig())

	result, err := auther.Login(context.Background(), "ada", "Tr1cky&Unique$Phrase")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))
	require.NotNil(t, result.Account)
	assert.Equal(t, identity.id, result.Account.ID)
	assert.Equal(t, "ada", result.Account.Username)
	assert.Equal(t, "standard", result.Account.Role)

	session, err := auther.SessionFromToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.id, session.GetAccountID())
	assert.Equal(t, "ada", session.GetUsername())

	provider.AssertExpectations(t)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	tests := []struct {
		name        string
		providerErr error
	}{
		{"Unknown identifier", authcore.ErrIdentityNotFound},
		{"Wrong password", authcore.ErrMismatchedHashAndPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &MockIdentityProvider{}
			provider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.providerErr).
				Once()

			auther := authcore.NewAuthenticator(provider, newTestConfig())

			result, err := auther.Login(context.Background(), "whoever", "whatever")
			assert.Nil(t, result)
			assert.ErrorIs(t, err, authcore.ErrInvalidCredentials)
		})
	}
}

func TestLoginStatusFailuresAreDistinct(t *testing.T) {
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
			identity := activeIdentity()
			identity.status = tt.status

			provider := &MockIdentityProvider{}
			provider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
				Return(identity, nil).
				Once()

			auther := authcore.NewAuthenticator(provider, newTestConfig())

			result, err := auther.Login(context.Background(), "ada", "correct-password")
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, authcore.ErrInvalidCredentials)
		})
	}
}

func TestLoginEmitsActivityEvents(t *testing.T) {
	identity := activeIdentity()

	provider := &MockIdentityProvider{}
	provider.On("VerifyIdentity", mock.Anything, "ada", mock.Anything).
		Return(identity, nil).
		Once()
	provider.On("VerifyIdentity", mock.Anything, "mallory", mock.Anything).
		Return(nil, authcore.ErrIdentityNotFound).
		Once()

	var events []authcore.ActivityEvent
	sink := authcore.ActivitySinkFunc(func(ctx context.Context, event authcore.ActivityEvent) error {
		events = append(events, event)
		return nil
	})

	auther := authcore.NewAuthenticator(provider, newTestConfig()).WithActivitySink(sink)

	_, err := auther.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)

	_, err = auther.Login(context.Background(), "mallory", "pw")
	require.Error(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, authcore.ActivityEventLoginSuccess, events[0].EventType)
	assert.Equal(t, identity.id, events[0].AccountID)
	assert.Equal(t, authcore.ActivityEventLoginFailure, events[1].EventType)
}

func TestSessionFromTokenUniformFailure(t *testing.T) {
	auther := authcore.NewAuthenticator(&MockIdentityProvider{}, newTestConfig())

	tests := []string{
		"",
		"garbage",
		"aaaa.bbbb.cccc",
	}

	for _, token := range tests {
		session, err := auther.SessionFromToken(token)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, authcore.ErrSessionInvalid)
	}
}

func TestSessionFromTokenCustomValidator(t *testing.T) {
	claims := &authcore.JWTClaims{
		UID:         "external-id",
		AccountName: "external",
		AccountRole: "standard",
	}

	auther := authcore.NewAuthenticator(&MockIdentityProvider{}, newTestConfig()).
		WithTokenValidator(authcore.TokenValidatorFunc(func(token string) (authcore.AuthClaims, error) {
			if token == "external-token" {
				return claims, nil
			}
			return nil, authcore.ErrSessionInvalid
		}))

	session, err := auther.SessionFromToken("external-token")
	require.NoError(t, err)
	assert.Equal(t, "external-id", session.GetAccountID())

	_, err = auther.SessionFromToken("anything-else")
	assert.ErrorIs(t, err, authcore.ErrSessionInvalid)
}

func TestImpersonate(t *testing.T) {
	identity := activeIdentity()

	provider := &MockIdentityProvider{}
	provider.On("FindIdentityByIdentifier", mock.Anything, "ada").
		Return(identity, nil).
		Once()

	auther := authcore.NewAuthenticator(provider, newTestConfig())

	result, err := auther.Impersonate(context.Background(), "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	session, err := auther.SessionFromToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.id, session.GetAccountID())

	provider.AssertExpectations(t)
}

func TestImpersonateSuspendedIsBlocked(t *testing.T) {
	identity := activeIdentity()
	identity.status = authcore.AccountStatusSuspended

	provider := &MockIdentityProvider{}
	provider.On("FindIdentityByIdentifier", mock.Anything, "ada").
		Return(identity, nil).
		Once()

	auther := authcore.NewAuthenticator(provider, newTestConfig())

	result, err := auther.Impersonate(context.Background(), "ada")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, authcore.ErrAccountSuspended)
}

func TestLoginExtended(t *testing.T) {
	identity := activeIdentity()

	provider := &MockIdentityProvider{}
	provider.On("VerifyIdentity", mock.Anything, "ada", mock.Anything).
		Return(identity, nil).
		Once()
	provider.On("FindIdentityByIdentifier", mock.Anything, "ada").
		Return(identity, nil).
		Once()

	auther := authcore.NewAuthenticator(provider, newTestConfig())

	result, err := auther.LoginExtended(context.Background(), "ada", "pw", 30*24*time.Hour)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), result.ExpiresAt, time.Minute)
}
