package authcore

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// DefaultPhoneRegion is used when a provisioning request carries a phone
// number without a country prefix.
var DefaultPhoneRegion = "US"

type ProvisionAccountMessage struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	IsRoot     bool   `json:"-"`
	UseHashid  bool
	Actor      ActorRef
	OnResponse func(resp *ProvisionAccountResponse)
}

func (e ProvisionAccountMessage) Type() string { return "account.provision" }

// SetupLink is what an administrator hands to the new account holder.
type SetupLink struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ProvisionAccountResponse struct {
	Account *Account
	Setup   *SetupLink
	Success bool
}

// ProvisionAccountHandler creates a pending account with no password and a
// single-use setup token. The account can not authenticate until the token is
// redeemed.
type ProvisionAccountHandler struct {
	repo     RepositoryManager
	tokens   SetupTokenStore
	activity ActivitySink
	logger   Logger
}

// NewProvisionAccountHandler creates a handler with sane defaults.
func NewProvisionAccountHandler(repo RepositoryManager, tokens SetupTokenStore) *ProvisionAccountHandler {
	return &ProvisionAccountHandler{
		repo:     repo,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit provisioning events.
func (h *ProvisionAccountHandler) WithActivitySink(sink ActivitySink) *ProvisionAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ProvisionAccountHandler) WithLogger(logger Logger) *ProvisionAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ProvisionAccountHandler) Execute(ctx context.Context, event ProvisionAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account provisioning",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ProvisionAccountHandler) execute(ctx context.Context, event ProvisionAccountMessage) error {
	account := &Account{}
	resp := &ProvisionAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := validateProvisionMessage(event); err != nil {
		return err
	}

	phone, err := normalizePhone(event.Phone)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid phone number").
			WithMetadata(map[string]any{"phone": event.Phone})
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		username := getUsername(event.Username, event.Email)

		exists, err := h.repo.Accounts().UsernameExists(ctx, username)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}
		if exists {
			return goerrors.New("username is already taken", goerrors.CategoryConflict).
				WithTextCode("USERNAME_TAKEN").
				WithMetadata(map[string]any{"username": username})
		}

		account.Username = username
		account.Email = event.Email
		account.Phone = phone
		account.Role = accountRoleOrDefault(event.Role)
		account.Status = AccountStatusPending
		account.PasswordSet = false
		account.IsRoot = event.IsRoot
		if event.UseHashid && event.Email != "" {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		token, err := h.tokens.IssueTx(ctx, tx, event.Actor, account.ID)
		if err != nil {
			return err
		}

		resp.Account = account
		resp.Setup = &SetupLink{
			Token:     token.Token,
			Path:      "/account-setup/" + token.Token,
			ExpiresAt: token.ExpiresAt,
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account provisioning transaction failed")
	}

	h.recordActivity(ctx, event.Actor, account)

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ProvisionAccountHandler) recordActivity(ctx context.Context, actor ActorRef, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountProvisioned,
		Actor:     actor,
		AccountID: account.ID.String(),
		ToStatus:  AccountStatusPending,
		Metadata: map[string]any{
			"username": account.Username,
			"role":     account.Role,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during provisioning: %v", err)
	}
}

func validateProvisionMessage(event ProvisionAccountMessage) error {
	if err := validation.Validate(getUsername(event.Username, event.Email),
		validation.Required,
		validation.RuneLength(2, 64),
	); err != nil {
		return goerrors.New("a username or email is required", goerrors.CategoryBadInput).
			WithTextCode("INVALID_USERNAME")
	}

	if event.Email != "" {
		if err := validation.Validate(event.Email, is.Email); err != nil {
			return goerrors.New("email address is not valid", goerrors.CategoryBadInput).
				WithTextCode("INVALID_EMAIL").
				WithMetadata(map[string]any{"email": event.Email})
		}
	}

	if event.Role != "" {
		if _, ok := ParseRole(event.Role); !ok {
			return goerrors.New("unknown account role", goerrors.CategoryBadInput).
				WithTextCode("INVALID_ROLE").
				WithMetadata(map[string]any{"role": event.Role})
		}
	}

	return nil
}

// normalizePhone formats a phone number into E.164, or passes an empty value
// through untouched.
func normalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("phone number is not valid", goerrors.CategoryBadInput)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

func accountRoleOrDefault(role string) AccountRole {
	if role == "" {
		return RoleStandard
	}
	return AccountRole(role)
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
