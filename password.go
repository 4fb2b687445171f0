package authcore

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 12

// PasswordSymbols is the fixed allow-set of punctuation characters, at least
// one of which every password must contain.
const PasswordSymbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// passwordDenylist holds common substrings rejected regardless of the other
// rules. Matching is case-insensitive; only the first match is reported.
var passwordDenylist = []string{
	"password",
	"123456",
	"qwerty",
	"admin",
	"letmein",
	"welcome",
	"monkey",
	"dragon",
	"master",
	"abc123",
}

// Violation reasons surfaced verbatim to the caller.
const (
	PasswordViolationEmpty     = "password cannot be empty"
	PasswordViolationLength    = "password must be at least 12 characters long"
	PasswordViolationUppercase = "password must contain an uppercase letter"
	PasswordViolationLowercase = "password must contain a lowercase letter"
	PasswordViolationDigit     = "password must contain a digit"
	PasswordViolationSymbol    = "password must contain a symbol"
	PasswordViolationDenylist  = "password contains a disallowed common phrase"
)

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// ValidatePassword applies every complexity rule independently and returns the
// full list of violations so the caller can surface all of them at once. An
// accepted password yields an empty slice. Empty input short-circuits into a
// single "cannot be empty" violation.
func ValidatePassword(candidate string) []string {
	if candidate == "" {
		return []string{PasswordViolationEmpty}
	}

	// Each rule is run on its own so one failure never masks another;
	// validation.Validate would stop at the first failing rule.
	rules := []struct {
		rule   validation.Rule
		reason string
	}{
		{validation.RuneLength(PasswordMinLength, 0), PasswordViolationLength},
		{validation.Match(upperRe), PasswordViolationUppercase},
		{validation.Match(lowerRe), PasswordViolationLowercase},
		{validation.Match(digitRe), PasswordViolationDigit},
		{validation.By(containsSymbol), PasswordViolationSymbol},
		{validation.By(avoidsDenylist), PasswordViolationDenylist},
	}

	var violations []string
	for _, r := range rules {
		if err := validation.Validate(candidate, r.rule); err != nil {
			violations = append(violations, r.reason)
		}
	}

	return violations
}

// PasswordPolicyError wraps a violation list into a categorized validation
// error carrying every violated rule, never a partial report.
func PasswordPolicyError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return goerrors.New("password does not meet the complexity policy", goerrors.CategoryValidation).
		WithTextCode(TextCodePasswordPolicy).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"violations": violations})
}

func containsSymbol(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, PasswordSymbols) {
		return nil
	}
	return errors.New("missing symbol")
}

// avoidsDenylist reports the first matching denylist entry and stops scanning;
// even when several entries match only one violation is ever reported.
func avoidsDenylist(value any) error {
	s, _ := value.(string)
	lowered := strings.ToLower(s)
	for _, phrase := range passwordDenylist {
		if strings.Contains(lowered, phrase) {
			return errors.New("contains " + phrase)
		}
	}
	return nil
}

// HashPassword will generate a password hash. Every call salts freshly, so
// hashing the same input twice yields two different strings.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if password == "" || hash == "" {
		return ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// PasswordMatches is the boolean form of ComparePasswordAndHash. It never
// panics or errors: empty candidates, nil hashes, and corrupt hashes are all
// simply a mismatch.
func PasswordMatches(password, hash string) bool {
	return ComparePasswordAndHash(password, hash) == nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
