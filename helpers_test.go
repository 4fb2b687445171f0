package authcore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-repository-bun"
	authcore "github.com/ledgerkit/authcore"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func repositoryNotFound() error {
	return repository.NewRecordNotFound()
}

// newTestDB opens a file-backed database in a per-test temp dir so tests stay
// isolated while still exercising the real single-writer setup.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := authcore.FileDSN(filepath.Join(t.TempDir(), "authcore_test.db"))

	db, err := authcore.OpenDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, authcore.CreateTables(context.Background(), db))

	return db
}

func newTestRepoManager(t *testing.T) authcore.RepositoryManager {
	t.Helper()
	return authcore.NewRepositoryManager(newTestDB(t))
}

func createPendingAccount(t *testing.T, repo authcore.RepositoryManager, username string) *authcore.Account {
	t.Helper()

	account, err := repo.Accounts().Create(context.Background(), &authcore.Account{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)

	return account
}

func createActiveAccount(t *testing.T, repo authcore.RepositoryManager, username, password string) *authcore.Account {
	t.Helper()

	account := createPendingAccount(t, repo, username)

	hash, err := authcore.HashPassword(password)
	require.NoError(t, err)

	account, err = repo.Accounts().SetPassword(context.Background(), account.ID, hash)
	require.NoError(t, err)

	return account
}
