package authcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	authcore "github.com/ledgerkit/authcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccounts stubs the repository surface the state machine touches. The
// embedded interface satisfies the rest; calling an un-stubbed method panics,
// which is exactly what we want in a test.
type MockAccounts struct {
	authcore.Accounts
	mock.Mock
}

func (m *MockAccounts) UpdateStatus(ctx context.Context, id uuid.UUID, status authcore.AccountStatus, opts ...authcore.StatusUpdateOption) (*authcore.Account, error) {
	args := m.Called(ctx, id, status, opts)

	var account *authcore.Account
	if v := args.Get(0); v != nil {
		account = v.(*authcore.Account)
	}
	return account, args.Error(1)
}

func activeAccount() *authcore.Account {
	return &authcore.Account{
		ID:       uuid.New(),
		Username: "ada",
		Role:     authcore.RoleStandard,
		Status:   authcore.AccountStatusActive,
	}
}

func adminActor() authcore.ActorRef {
	return authcore.ActorRef{ID: uuid.NewString(), Type: "account"}
}

func TestTransitionActiveToSuspended(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	account := activeAccount()

	expected := &authcore.Account{
		ID:          account.ID,
		Status:      authcore.AccountStatusSuspended,
		SuspendedAt: &now,
	}

	repo := &MockAccounts{}
	repo.On("UpdateStatus", mock.Anything, account.ID, authcore.AccountStatusSuspended, mock.Anything).
		Return(expected, nil).
		Once()

	sm := authcore.NewAccountStateMachine(repo, authcore.WithStateMachineClock(func() time.Time {
		return now
	}))

	updated, err := sm.Transition(context.Background(), adminActor(), account, authcore.AccountStatusSuspended)
	require.NoError(t, err)

	assert.Equal(t, authcore.AccountStatusSuspended, updated.Status)
	require.NotNil(t, updated.SuspendedAt)
	assert.Equal(t, now, *updated.SuspendedAt)

	repo.AssertExpectations(t)
}

func TestTransitionSuspendedToActiveClearsTimestamp(t *testing.T) {
	suspendedAt := time.Now().Add(-time.Hour)
	account := activeAccount()
	account.Status = authcore.AccountStatusSuspended
	account.SuspendedAt = &suspendedAt

	expected := &authcore.Account{
		ID:     account.ID,
		Status: authcore.AccountStatusActive,
	}

	repo := &MockAccounts{}
	repo.On("UpdateStatus", mock.Anything, account.ID, authcore.AccountStatusActive, mock.Anything).
		Return(expected, nil).
		Once()

	sm := authcore.NewAccountStateMachine(repo)

	updated, err := sm.Transition(context.Background(), adminActor(), account, authcore.AccountStatusActive)
	require.NoError(t, err)

	assert.Equal(t, authcore.AccountStatusActive, updated.Status)
	assert.Nil(t, updated.SuspendedAt)

	repo.AssertExpectations(t)
}

func TestTransitionPendingToSuspendedIsInvalid(t *testing.T) {
	account := activeAccount()
	account.Status = authcore.AccountStatusPending

	repo := &MockAccounts{}
	sm := authcore.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), adminActor(), account, authcore.AccountStatusSuspended)
	assert.ErrorIs(t, err, authcore.ErrInvalidTransition)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	account := activeAccount()

	repo := &MockAccounts{}
	sm := authcore.NewAccountStateMachine(repo)

	updated, err := sm.Transition(context.Background(), adminActor(), account, authcore.AccountStatusActive)
	require.NoError(t, err)
	assert.Same(t, account, updated)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestForceTransitionBypassesValidation(t *testing.T) {
	account := activeAccount()
	account.Status = authcore.AccountStatusPending

	expected := &authcore.Account{
		ID:     account.ID,
		Status: authcore.AccountStatusSuspended,
	}

	repo := &MockAccounts{}
	repo.On("UpdateStatus", mock.Anything, account.ID, authcore.AccountStatusSuspended, mock.Anything).
		Return(expected, nil).
		Once()

	sm := authcore.NewAccountStateMachine(repo)

	_, err := sm.Transition(
		context.Background(),
		adminActor(),
		account,
		authcore.AccountStatusSuspended,
		authcore.WithForceTransition(),
	)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestRootAccountCannotBeSuspended(t *testing.T) {
	account := activeAccount()
	account.IsRoot = true

	repo := &MockAccounts{}
	sm := authcore.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), adminActor(), account, authcore.AccountStatusSuspended)
	assert.ErrorIs(t, err, authcore.ErrRootAccountProtected)

	// force does not soften root protection
	_, err = sm.Transition(
		context.Background(),
		adminActor(),
		account,
		authcore.AccountStatusSuspended,
		authcore.WithForceTransition(),
	)
	assert.ErrorIs(t, err, authcore.ErrRootAccountProtected)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionHooksRunAroundPersistence(t *testing.T) {
	account := activeAccount()

	expected := &authcore.Account{
		ID:     account.ID,
		Status: authcore.AccountStatusSuspended,
	}

	repo := &MockAccounts{}
	repo.On("UpdateStatus", mock.Anything, account.ID, authcore.AccountStatusSuspended, mock.Anything).
		Return(expected, nil).
		Once()

	sm := authcore.NewAccountStateMachine(repo)

	var order []string
	_, err := sm.Transition(
		context.Background(),
		adminActor(),
		account,
		authcore.AccountStatusSuspended,
		authcore.WithTransitionReason("policy violation"),
		authcore.WithBeforeTransitionHook(func(ctx context.Context, tc authcore.TransitionContext) error {
			order = append(order, "before")
			assert.Equal(t, "policy violation", tc.Meta.Reason)
			assert.Equal(t, authcore.AccountStatusActive, tc.From)
			assert.Equal(t, authcore.AccountStatusSuspended, tc.To)
			return nil
		}),
		authcore.WithAfterTransitionHook(func(ctx context.Context, tc authcore.TransitionContext) error {
			order = append(order, "after")
			return nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "after"}, order)

	repo.AssertExpectations(t)
}

func TestTransitionRecordsActivity(t *testing.T) {
	account := activeAccount()

	expected := &authcore.Account{
		ID:     account.ID,
		Status: authcore.AccountStatusSuspended,
	}

	repo := &MockAccounts{}
	repo.On("UpdateStatus", mock.Anything, account.ID, authcore.AccountStatusSuspended, mock.Anything).
		Return(expected, nil).
		Once()

	var recorded []authcore.ActivityEvent
	sink := authcore.ActivitySinkFunc(func(ctx context.Context, event authcore.ActivityEvent) error {
		recorded = append(recorded, event)
		return nil
	})

	sm := authcore.NewAccountStateMachine(repo, authcore.WithStateMachineActivitySink(sink))

	actor := adminActor()
	_, err := sm.Transition(context.Background(), actor, account, authcore.AccountStatusSuspended)
	require.NoError(t, err)

	require.Len(t, recorded, 1)
	assert.Equal(t, authcore.ActivityEventAccountStatusChanged, recorded[0].EventType)
	assert.Equal(t, actor, recorded[0].Actor)
	assert.Equal(t, account.ID.String(), recorded[0].AccountID)
	assert.Equal(t, authcore.AccountStatusActive, recorded[0].FromStatus)
	assert.Equal(t, authcore.AccountStatusSuspended, recorded[0].ToStatus)
}

func TestTransitionGuards(t *testing.T) {
	repo := &MockAccounts{}
	sm := authcore.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), adminActor(), nil, authcore.AccountStatusActive)
	assert.ErrorIs(t, err, authcore.ErrInvalidTransition)

	_, err = sm.Transition(context.Background(), adminActor(), activeAccount(), "")
	assert.ErrorIs(t, err, authcore.ErrInvalidTransition)
}

func TestCurrentStatus(t *testing.T) {
	sm := authcore.NewAccountStateMachine(&MockAccounts{})

	assert.Equal(t, authcore.AccountStatus(""), sm.CurrentStatus(nil))

	account := &authcore.Account{PasswordSet: true}
	assert.Equal(t, authcore.AccountStatusActive, sm.CurrentStatus(account))

	account = &authcore.Account{}
	assert.Equal(t, authcore.AccountStatusPending, sm.CurrentStatus(account))
}
