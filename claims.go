package authcore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents the structured claim set carried by session tokens
type AuthClaims interface {
	Subject() string
	AccountID() string
	Username() string
	Role() string
	CanManageAccounts() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	AccountName string `json:"usr,omitempty"`
	AccountRole string `json:"role,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the account ID
func (c *JWTClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the account's username
func (c *JWTClaims) Username() string {
	return c.AccountName
}

// Role returns the account role
func (c *JWTClaims) Role() string {
	return c.AccountRole
}

// CanManageAccounts checks if the principal can administer accounts
func (c *JWTClaims) CanManageAccounts() bool {
	return RoleCanManageAccounts(AccountRole(c.AccountRole))
}

// HasRole checks if the principal has a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.AccountRole == role
}

// IsAtLeast checks if the principal's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	return RoleIsAtLeast(AccountRole(c.AccountRole), AccountRole(minRole))
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID backfills a random jti so every issued token is unique even
// for identical claim sets.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
