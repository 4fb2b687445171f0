package authcore

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface
// using the authcore TokenService for seamless WebSocket authentication
type WSTokenValidator struct {
	tokenService TokenService
}

// NewWSTokenValidator creates a new WebSocket token validator using the provided TokenService
func NewWSTokenValidator(tokenService TokenService) *WSTokenValidator {
	return &WSTokenValidator{
		tokenService: tokenService,
	}
}

// Validate validates a token string and returns WebSocket-compatible auth claims
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.tokenService.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter adapts authcore AuthClaims to go-router's WSAuthClaims interface
type WSAuthClaimsAdapter struct {
	claims AuthClaims
}

// Subject returns the subject claim
func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.Subject()
}

// UserID returns the account ID
func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.AccountID()
}

// Role returns the account's role
func (w *WSAuthClaimsAdapter) Role() string {
	return w.claims.Role()
}

// CanRead reports whether the principal may read the resource. Every
// authenticated principal can read.
func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return true
}

// CanEdit reports whether the principal may edit the resource. Account
// administration is restricted to managers; everything else is open to
// authenticated principals.
func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return w.canMutate(resource)
}

// CanCreate reports whether the principal may create the resource.
func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return w.canMutate(resource)
}

// CanDelete reports whether the principal may delete the resource.
func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return w.canMutate(resource)
}

// HasRole checks if the principal has a specific role
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return w.claims.HasRole(role)
}

// IsAtLeast checks if the principal's role is at least the minimum required role
func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	return w.claims.IsAtLeast(minRole)
}

func (w *WSAuthClaimsAdapter) canMutate(resource string) bool {
	if resource == "accounts" {
		return w.claims.CanManageAccounts()
	}
	return true
}

// NewWSAuthMiddleware creates a fully configured WebSocket authentication middleware
// using the authcore TokenService.
func (s *Auther) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	validator := NewWSTokenValidator(s.tokenService)

	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = validator

	return router.NewWSAuth(cfg)
}

// WSAuthClaimsFromContext is a convenience function to retrieve auth claims from WebSocket context.
// It returns the underlying authcore AuthClaims for easier access to authcore specific functionality.
func WSAuthClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}

	return nil, false
}
