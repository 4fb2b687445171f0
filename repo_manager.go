package authcore

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	SetupTokens() repository.Repository[*SetupToken]
	RunInReadTx(ctx context.Context, f func(ctx context.Context, tx bun.Tx) error) error
}

type mngr struct {
	db          *bun.DB
	accounts    Accounts
	setupTokens repository.Repository[*SetupToken]
}

func NewRepositoryManager(db *bun.DB, opts ...AccountsOption) RepositoryManager {
	return &mngr{
		db:          db,
		accounts:    NewAccountsRepository(db, opts...),
		setupTokens: NewSetupTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.setupTokens == nil {
		return errors.New("repository setupTokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// RunInReadTx opens a short, independently committed transaction for reads.
// Reads never piggyback on a writer's transaction. sqlite transactions start
// deferred, so one that never writes stays a read transaction and does not
// contend for the write lock.
func (m mngr) RunInReadTx(ctx context.Context, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, &sql.TxOptions{}, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) SetupTokens() repository.Repository[*SetupToken] {
	return m.setupTokens
}
