package authcore_test

import (
	"testing"
	"time"

	authcore "github.com/ledgerkit/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIdentity implements the Identity interface for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements the Logger interface for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {}
func (m *MockLogger) Info(format string, args ...any)  {}
func (m *MockLogger) Warn(format string, args ...any)  {}
func (m *MockLogger) Error(format string, args ...any) {}

func newTestIdentity() *MockIdentity {
	identity := &MockIdentity{}
	identity.On("ID").Return("d84b8ffe-63cf-4aa9-b08b-9f2d1c41e297")
	identity.On("Username").Return("ada")
	identity.On("Email").Return("ada@example.com")
	identity.On("Role").Return("admin")
	return identity
}

func TestTokenServiceGenerateAndValidate(t *testing.T) {
	service := authcore.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"authcore-test",
		[]string{"expense-app"},
		&MockLogger{},
	)

	identity := newTestIdentity()

	token, err := service.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "d84b8ffe-63cf-4aa9-b08b-9f2d1c41e297", claims.Subject())
	assert.Equal(t, "d84b8ffe-63cf-4aa9-b08b-9f2d1c41e297", claims.AccountID())
	assert.Equal(t, "ada", claims.Username())
	assert.Equal(t, "admin", claims.Role())
	assert.True(t, claims.CanManageAccounts())
	assert.True(t, claims.Expires().After(time.Now()))
}

func TestTokenServiceValidateUniformFailure(t *testing.T) {
	service := authcore.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"authcore-test",
		[]string{"expense-app"},
		&MockLogger{},
	)

	otherKeyService := authcore.NewTokenService(
		[]byte("a-completely-different-key"),
		1,
		"authcore-test",
		[]string{"expense-app"},
		&MockLogger{},
	)

	identity := newTestIdentity()

	valid, err := service.Generate(identity)
	require.NoError(t, err)

	wrongKey, err := otherKeyService.Generate(identity)
	require.NoError(t, err)

	expired, _, err := authcore.MintSessionToken(service, identity, authcore.SessionTokenOptions{
		TTL:      time.Minute,
		IssuedAt: time.Now().Add(-2 * time.Hour),
	})
	require.NoError(t, err)

	tampered := valid[:len(valid)-4] + "AAAA"

	wrongIssuer := authcore.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"someone-else",
		[]string{"expense-app"},
		&MockLogger{},
	)
	foreignIssuer, err := wrongIssuer.Generate(identity)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty token", ""},
		{"Garbage token", "not-even-a-jwt"},
		{"Structurally valid garbage", "aaaa.bbbb.cccc"},
		{"Wrong signing key", wrongKey},
		{"Expired token", expired},
		{"Tampered signature", tampered},
		{"Wrong issuer", foreignIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.Validate(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, authcore.ErrSessionInvalid)
		})
	}
}

func TestTokenServiceIssuesUniqueTokens(t *testing.T) {
	service := authcore.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"authcore-test",
		nil,
		&MockLogger{},
	)

	identity := newTestIdentity()

	first, err := service.Generate(identity)
	require.NoError(t, err)

	second, err := service.Generate(identity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestMintSessionTokenTTLOverride(t *testing.T) {
	service := authcore.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"authcore-test",
		nil,
		&MockLogger{},
	)

	identity := newTestIdentity()

	token, expiresAt, err := authcore.MintSessionToken(service, identity, authcore.SessionTokenOptions{
		TTL: 72 * time.Hour,
	})
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.WithinDuration(t, expiresAt, claims.Expires(), time.Second)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), expiresAt, time.Minute)
}

func TestMintSessionTokenRequiresInputs(t *testing.T) {
	service := authcore.NewTokenService([]byte("k"), 1, "", nil, &MockLogger{})

	_, _, err := authcore.MintSessionToken(nil, newTestIdentity(), authcore.SessionTokenOptions{})
	assert.Error(t, err)

	_, _, err = authcore.MintSessionToken(service, nil, authcore.SessionTokenOptions{})
	assert.Error(t, err)

	_, _, err = authcore.MintSessionToken(service, newTestIdentity(), authcore.SessionTokenOptions{
		TTL: -time.Hour,
	})
	assert.Error(t, err)
}
