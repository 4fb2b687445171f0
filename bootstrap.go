package authcore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RootUsername is the username given to the primordial administrator.
var RootUsername = "root"

// Bootstrapper drives first-run provisioning. A fresh installation has no
// accounts at all; EnsureRootAccount creates the primordial administrator in
// the pending state and the caller surfaces its setup link through whatever
// channel fits the deployment.
type Bootstrapper struct {
	repo   RepositoryManager
	tokens SetupTokenStore
	logger Logger
}

func NewBootstrapper(repo RepositoryManager, tokens SetupTokenStore) *Bootstrapper {
	return &Bootstrapper{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used during bootstrap.
func (b *Bootstrapper) WithLogger(logger Logger) *Bootstrapper {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// EnsureRootAccount creates the root administrator if it does not exist and
// returns it together with a setup link when the account still needs
// provisioning. Calling it on an already-provisioned system is a no-op.
func (b *Bootstrapper) EnsureRootAccount(ctx context.Context) (*Account, *SetupLink, error) {
	var account *Account
	var setup *SetupLink

	err := b.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := b.repo.Accounts().FindRootTx(ctx, tx)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up root account")
		}

		if existing != nil {
			account = existing
			if existing.PasswordSet {
				return nil
			}

			token, err := b.tokens.IssueTx(ctx, tx, ActorRef{Type: "system"}, existing.ID)
			if err != nil {
				return err
			}
			setup = setupLinkFromToken(token)
			return nil
		}

		record := &Account{
			Username: RootUsername,
			Role:     RoleAdmin,
			Status:   AccountStatusPending,
			IsRoot:   true,
		}

		if account, err = b.repo.Accounts().CreateTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create root account")
		}

		token, err := b.tokens.IssueTx(ctx, tx, ActorRef{Type: "system"}, account.ID)
		if err != nil {
			return err
		}
		setup = setupLinkFromToken(token)

		b.logger.Info("created root account %s, provisioning required", account.ID)
		return nil
	})

	if err != nil {
		return nil, nil, err
	}

	return account, setup, nil
}

// IsProvisioningRequired reports whether the installation still needs its
// root administrator set up. It runs inside a short read-only transaction.
func (b *Bootstrapper) IsProvisioningRequired(ctx context.Context) (bool, error) {
	required := true

	err := b.repo.RunInReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		root, err := b.repo.Accounts().FindRootTx(ctx, tx)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up root account")
		}

		required = !root.PasswordSet
		return nil
	})
	if err != nil {
		return false, err
	}

	return required, nil
}

// CompleteProvisioning redeems the root setup token with the chosen password
// and returns the now-active root account.
func (b *Bootstrapper) CompleteProvisioning(ctx context.Context, token, password string) (*Account, error) {
	var account *Account

	handler := NewRedeemSetupTokenHandler(b.repo, b.tokens).WithLogger(b.logger)
	err := handler.Execute(ctx, RedeemSetupTokenMessage{
		Token:    token,
		Password: password,
		OnResponse: func(resp *RedeemSetupTokenResponse) {
			account = resp.Account
		},
	})
	if err != nil {
		return nil, err
	}

	if account == nil || !account.IsRoot {
		return nil, goerrors.New("setup token does not belong to the root account", goerrors.CategoryConflict).
			WithTextCode("NOT_ROOT_SETUP_TOKEN")
	}

	return account, nil
}

func setupLinkFromToken(token *SetupToken) *SetupLink {
	if token == nil {
		return nil
	}
	return &SetupLink{
		Token:     token.Token,
		Path:      "/account-setup/" + token.Token,
		ExpiresAt: token.ExpiresAt,
	}
}

// StartSetupTokenSweeper launches a background loop that periodically removes
// expired setup tokens. It stops when the context is cancelled.
func StartSetupTokenSweeper(ctx context.Context, tokens SetupTokenStore, interval time.Duration, logger Logger) {
	if logger == nil {
		logger = defLogger{}
	}
	if interval <= 0 {
		interval = SetupTokenTTL
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := tokens.SweepExpired(ctx); err != nil {
					logger.Error("setup token sweep failed: %v", err)
				}
			}
		}
	}()
}
