package authcore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's role
type AccountRole = string

const (
	// RoleStandard covers regular members: they manage their own expenses.
	RoleStandard AccountRole = "standard"
	// RoleAdmin can additionally provision, suspend, and delete accounts.
	RoleAdmin AccountRole = "admin"
)

// AccountStatus tracks the lifecycle of an account.
type AccountStatus = string

const (
	// AccountStatusPending is a provisioned account without a password. It
	// cannot authenticate until its setup token is redeemed.
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive is a fully provisioned account.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended is administratively disabled.
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is the identity record.
//
// Invariant: PasswordSet, Status, and PasswordHash move together. A pending
// account has no hash and PasswordSet=false; redeeming a setup token sets all
// three in one transaction.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          AccountRole   `bun:"account_role,notnull" json:"account_role,omitempty"`
	Username      string        `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string        `bun:"email" json:"email,omitempty"`
	Phone         string        `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"-"`
	PasswordSet   bool          `bun:"password_set,notnull" json:"password_set,omitempty"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	// IsRoot marks the bootstrap administrator. Exactly one account carries
	// it; it is created during provisioning and can never be deleted.
	IsRoot         bool       `bun:"is_root,notnull" json:"is_root,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SuspendedAt    *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status column for records created before the
// lifecycle model existed.
func (a *Account) EnsureStatus() {
	if a == nil {
		return
	}
	if a.Status == "" {
		if a.PasswordSet {
			a.Status = AccountStatusActive
		} else {
			a.Status = AccountStatusPending
		}
	}
}

// Active reports whether the account may authenticate.
func (a *Account) Active() bool {
	if a == nil {
		return false
	}
	a.EnsureStatus()
	return a.Status == AccountStatusActive
}

// Summary projects the account into the login response shape.
func (a *Account) Summary() *AccountSummary {
	if a == nil {
		return nil
	}
	return &AccountSummary{
		ID:       a.ID.String(),
		Username: a.Username,
		Email:    a.Email,
		Role:     string(a.Role),
	}
}

// SetupTokenTTL is the fixed validity window for setup tokens.
const SetupTokenTTL = 15 * time.Minute

// SetupToken is the single-use provisioning credential. The Token column is
// the bearer secret and the lookup key; it must never be logged.
type SetupToken struct {
	bun.BaseModel `bun:"table:setup_tokens,alias:stk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:has-one,join:account_id=id" json:"account,omitempty"`
	Used          bool       `bun:"used,notnull" json:"used,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the token's window has passed at the given instant.
func (t *SetupToken) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	return now.After(t.ExpiresAt)
}

// MarkConsumed flags the token as used. Both used and expired are terminal;
// neither state is ever reversed.
func (t *SetupToken) MarkConsumed() *SetupToken {
	t.Used = true
	return t
}
