package authcore

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside categorized errors.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeSessionInvalid     = "SESSION_TOKEN_INVALID"
	TextCodeAccountPending     = "ACCOUNT_PENDING"
	TextCodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	TextCodeRootProtected      = "ROOT_ACCOUNT_PROTECTED"
	TextCodePasswordPolicy     = "PASSWORD_POLICY_VIOLATION"
	TextCodeSetupTokenNotFound = "SETUP_TOKEN_NOT_FOUND"
	TextCodeSetupTokenUsed     = "SETUP_TOKEN_ALREADY_USED"
	TextCodeSetupTokenExpired  = "SETUP_TOKEN_EXPIRED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrUnableToFindSession is the error when the request carries no session
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from the presented credential
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data")

// ErrNoEmptyString rejects empty password input at the hashing boundary
var ErrNoEmptyString = errors.New("password can not be an empty string")

// ErrMismatchedHashAndPassword is returned whenever a candidate password does
// not match the stored hash. Unknown identifiers collapse into the same error
// so login failures never reveal whether an account exists.
var ErrMismatchedHashAndPassword = errors.New("credentials do not match")

// ErrTooManyLoginAttempts puts an account in a cool down after repeated
// failures.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryAuth).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS").
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is the uniform authentication failure handed to the
// transport layer, regardless of which condition held.
var ErrInvalidCredentials = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionInvalid covers every session token failure: empty, malformed, bad
// signature, and expired. Callers get no oracle about which one occurred.
var ErrSessionInvalid = goerrors.New("invalid or expired session token", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountPending blocks logins for accounts that never completed setup.
var ErrAccountPending = goerrors.New("account has not completed setup", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountPending).
	WithCode(goerrors.CodeForbidden)

// ErrAccountSuspended blocks logins for administratively suspended accounts.
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrRootAccountProtected guards the bootstrap administrator from mutation by
// anyone but itself: no suspension, no role change, no delete.
var ErrRootAccountProtected = goerrors.New("root account can not be modified", goerrors.CategoryConflict).
	WithTextCode(TextCodeRootProtected).
	WithCode(goerrors.CodeConflict)

// statusAuthError maps an account status to the authorization failure a login
// or token refresh should surface. Active accounts return nil.
func statusAuthError(status AccountStatus) error {
	switch status {
	case AccountStatusActive:
		return nil
	case AccountStatusPending:
		return ErrAccountPending
	case AccountStatusSuspended:
		return ErrAccountSuspended
	default:
		return ErrAccountSuspended
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
