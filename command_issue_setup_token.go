package authcore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type IssueSetupTokenMessage struct {
	Username   string `json:"username"`
	Actor      ActorRef
	OnResponse func(resp *IssueSetupTokenResponse)
}

func (e IssueSetupTokenMessage) Type() string { return "account.setup_token.issue" }

type IssueSetupTokenResponse struct {
	Setup   *SetupLink
	Success bool
}

// IssueSetupTokenHandler reissues a setup token for a pending account.
// Any previously issued, still-unused token is superseded: at most one
// redeemable token exists per account.
type IssueSetupTokenHandler struct {
	repo   RepositoryManager
	tokens SetupTokenStore
	logger Logger
}

// NewIssueSetupTokenHandler creates a handler with sane defaults.
func NewIssueSetupTokenHandler(repo RepositoryManager, tokens SetupTokenStore) *IssueSetupTokenHandler {
	return &IssueSetupTokenHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *IssueSetupTokenHandler) WithLogger(logger Logger) *IssueSetupTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *IssueSetupTokenHandler) Execute(ctx context.Context, event IssueSetupTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during setup token issuance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *IssueSetupTokenHandler) execute(ctx context.Context, event IssueSetupTokenMessage) error {
	resp := &IssueSetupTokenResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByUsername(ctx, event.Username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for token issuance")
	}

	if account.PasswordSet {
		return goerrors.New("account has already completed setup", goerrors.CategoryConflict).
			WithTextCode("ACCOUNT_ALREADY_ACTIVE").
			WithMetadata(map[string]any{"username": account.Username})
	}

	token, err := h.tokens.Issue(ctx, event.Actor, account.ID)
	if err != nil {
		return err
	}

	resp.Setup = &SetupLink{
		Token:     token.Token,
		Path:      "/account-setup/" + token.Token,
		ExpiresAt: token.ExpiresAt,
	}
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
