package authcore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RedeemSetupTokenMessage struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	OnResponse func(resp *RedeemSetupTokenResponse)
}

func (e RedeemSetupTokenMessage) Type() string { return "account.setup_token.redeem" }

type RedeemSetupTokenResponse struct {
	Account *Account
	Success bool
}

// RedeemSetupTokenHandler turns a pending account into an active one: the
// presented token is consumed and the password hash, password_set flag, and
// status all flip in a single transaction. A failed redemption changes
// nothing, including the token itself.
type RedeemSetupTokenHandler struct {
	repo     RepositoryManager
	tokens   SetupTokenStore
	activity ActivitySink
	logger   Logger
}

// NewRedeemSetupTokenHandler creates a handler with sane defaults.
func NewRedeemSetupTokenHandler(repo RepositoryManager, tokens SetupTokenStore) *RedeemSetupTokenHandler {
	return &RedeemSetupTokenHandler{
		repo:     repo,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit redemption events.
func (h *RedeemSetupTokenHandler) WithActivitySink(sink ActivitySink) *RedeemSetupTokenHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RedeemSetupTokenHandler) WithLogger(logger Logger) *RedeemSetupTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RedeemSetupTokenHandler) Execute(ctx context.Context, event RedeemSetupTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during setup token redemption",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RedeemSetupTokenHandler) execute(ctx context.Context, event RedeemSetupTokenMessage) error {
	resp := &RedeemSetupTokenResponse{}
	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// reject a bad password before touching the token so a policy violation
	// leaves the token redeemable
	if violations := ValidatePassword(event.Password); len(violations) > 0 {
		return PasswordPolicyError(violations)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		validation, err := h.tokens.ValidateTx(ctx, tx, event.Token)
		if err != nil {
			return err
		}
		if verr := validation.Err(); verr != nil {
			return verr
		}

		passwordHash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if _, err := h.tokens.ConsumeTx(ctx, tx, event.Token); err != nil {
			return err
		}

		account, err = h.repo.Accounts().SetPasswordTx(ctx, tx, validation.Token.AccountID, passwordHash)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to redeem setup token")
	}

	h.recordActivity(ctx, account)

	resp.Account = account
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RedeemSetupTokenHandler) recordActivity(ctx context.Context, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventSetupTokenRedeemed,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID:  account.ID.String(),
		FromStatus: AccountStatusPending,
		ToStatus:   AccountStatusActive,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during token redemption: %v", err)
	}
}
