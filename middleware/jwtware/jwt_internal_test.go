package jwtware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKeyfuncOptions validates the keyfunc options used for JWKS refresh.
func TestKeyfuncOptions(t *testing.T) {
	opts := keyfuncOptions(nil)

	assert.NotPanics(t, func() {
		opts.RefreshErrorHandler(errors.New("background refresh failed"))
	})

	assert.Equal(t, time.Hour, opts.RefreshInterval)
	assert.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	assert.Equal(t, 10*time.Second, opts.RefreshTimeout)
	assert.True(t, opts.RefreshUnknownKID)
}

type panickyValidator struct{}

func (panickyValidator) Validate(string) (AuthClaims, error) {
	panic("boom")
}

type staticClaims struct{}

func (staticClaims) Subject() string           { return "sub" }
func (staticClaims) AccountID() string         { return "id" }
func (staticClaims) Username() string          { return "user" }
func (staticClaims) Role() string              { return "standard" }
func (staticClaims) CanManageAccounts() bool   { return false }
func (staticClaims) HasRole(role string) bool  { return role == "standard" }
func (staticClaims) IsAtLeast(min string) bool { return min == "standard" }

type staticValidator struct{}

func (staticValidator) Validate(string) (AuthClaims, error) {
	return staticClaims{}, nil
}

// TestSafeValidate asserts that a panicking validator surfaces as an error
// instead of crashing the request path.
func TestSafeValidate(t *testing.T) {
	claims, err := safeValidate(panickyValidator{}, "any-token")
	assert.Nil(t, claims)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token validation panicked")

	claims, err = safeValidate(staticValidator{}, "any-token")
	require.NoError(t, err)
	assert.Equal(t, "id", claims.AccountID())
}

func TestGetExtractorsParsing(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		count  int
	}{
		{"Single header", "header:Authorization", 1},
		{"Header and cookie", "header:Authorization,cookie:jwt", 2},
		{"All sources", "header:Authorization, query:auth_token, param:token, cookie:jwt", 4},
		{"Unknown source ignored", "body:token", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractors := GetExtractors(tt.lookup, "Bearer")
			assert.Len(t, extractors, tt.count)
		})
	}
}

func TestPerformAuthorizationChecks(t *testing.T) {
	claims := staticClaims{}

	// no RBAC config means no checks
	assert.NoError(t, performAuthorizationChecks(claims, Config{}))

	assert.NoError(t, performAuthorizationChecks(claims, Config{RequiredRole: "standard"}))
	assert.Error(t, performAuthorizationChecks(claims, Config{RequiredRole: "admin"}))

	assert.NoError(t, performAuthorizationChecks(claims, Config{MinimumRole: "standard"}))
	assert.Error(t, performAuthorizationChecks(claims, Config{MinimumRole: "admin"}))

	checker := func(c AuthClaims, role string) bool { return false }
	assert.Error(t, performAuthorizationChecks(claims, Config{RequiredRole: "standard", RoleChecker: checker}))
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		GetDefaultConfig(Config{})
	})

	cfg := GetDefaultConfig(Config{TokenValidator: staticValidator{}})
	assert.Equal(t, "account", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, defaultTokenLookup, cfg.TokenLookup)
	assert.NotNil(t, cfg.SuccessHandler)
	assert.NotNil(t, cfg.ErrorHandler)
}
