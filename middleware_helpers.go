package authcore

import (
	"context"

	"github.com/ledgerkit/authcore/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use authcore helpers directly.
type ValidationListener = jwtware.ValidationListener

// NewMiddlewareTokenValidator bridges a TokenValidator into the shape the
// jwtware middleware expects.
func NewMiddlewareTokenValidator(inner TokenValidator) jwtware.TokenValidator {
	return middlewareTokenValidator{inner: inner}
}

type middlewareTokenValidator struct {
	inner TokenValidator
}

func (v middlewareTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.inner.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	jc, ok := claims.(jwtware.AuthClaims)
	if !ok {
		return nil, ErrUnableToMapClaims
	}

	return jc, nil
}

// ContextEnricherAdapter adapts jwtware.AuthClaims to authcore.AuthClaims and
// stores claims in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
