package authcore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetupTokenStatus is the verdict of a setup token inspection.
type SetupTokenStatus string

const (
	SetupTokenStatusValid       SetupTokenStatus = "valid"
	SetupTokenStatusNotFound    SetupTokenStatus = "not_found"
	SetupTokenStatusAlreadyUsed SetupTokenStatus = "already_used"
	SetupTokenStatusExpired     SetupTokenStatus = "expired"
)

// SetupTokenValidation is the result of inspecting a presented setup token.
// When a token is simultaneously disqualified for several reasons, Status
// carries the highest-priority one: not found, then already used, then
// expired.
type SetupTokenValidation struct {
	Status  SetupTokenStatus
	Token   *SetupToken
	Account *Account
}

// Valid reports whether the token may still be redeemed.
func (v *SetupTokenValidation) Valid() bool {
	return v != nil && v.Status == SetupTokenStatusValid
}

// Err maps a non-valid status to its categorized error, nil otherwise.
func (v *SetupTokenValidation) Err() error {
	if v == nil {
		return setupTokenStatusError(SetupTokenStatusNotFound)
	}
	return setupTokenStatusError(v.Status)
}

func setupTokenStatusError(status SetupTokenStatus) error {
	switch status {
	case SetupTokenStatusValid:
		return nil
	case SetupTokenStatusAlreadyUsed:
		return goerrors.New("setup token was already used", goerrors.CategoryConflict).
			WithTextCode(TextCodeSetupTokenUsed).
			WithCode(goerrors.CodeConflict)
	case SetupTokenStatusExpired:
		return goerrors.New("setup token has expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeSetupTokenExpired).
			WithCode(goerrors.CodeUnauthorized)
	default:
		return goerrors.New("setup token not found", goerrors.CategoryNotFound).
			WithTextCode(TextCodeSetupTokenNotFound).
			WithCode(goerrors.CodeNotFound)
	}
}

// SetupTokenStore manages the lifecycle of single-use provisioning tokens.
type SetupTokenStore interface {
	Issue(ctx context.Context, actor ActorRef, accountID uuid.UUID) (*SetupToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, actor ActorRef, accountID uuid.UUID) (*SetupToken, error)
	Validate(ctx context.Context, token string) (*SetupTokenValidation, error)
	ValidateTx(ctx context.Context, tx bun.IDB, token string) (*SetupTokenValidation, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, token string) (*SetupToken, error)
	SweepExpired(ctx context.Context) (int, error)
}

type setupTokenStore struct {
	repo   RepositoryManager
	logger Logger
	sink   ActivitySink
	nowFn  func() time.Time
}

var _ SetupTokenStore = (*setupTokenStore)(nil)

// SetupTokenStoreOption configures the store.
type SetupTokenStoreOption func(*setupTokenStore)

// WithSetupTokenLogger replaces the default logger.
func WithSetupTokenLogger(logger Logger) SetupTokenStoreOption {
	return func(s *setupTokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSetupTokenActivitySink registers an audit sink for issue/redeem/sweep.
func WithSetupTokenActivitySink(sink ActivitySink) SetupTokenStoreOption {
	return func(s *setupTokenStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithSetupTokenClock overrides the time source, mostly for tests.
func WithSetupTokenClock(nowFn func() time.Time) SetupTokenStoreOption {
	return func(s *setupTokenStore) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

func NewSetupTokenStore(repo RepositoryManager, opts ...SetupTokenStoreOption) SetupTokenStore {
	store := &setupTokenStore{
		repo:   repo,
		logger: &defLogger{},
		sink:   noopActivitySink{},
		nowFn:  time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

// Issue mints a fresh token for the account inside its own transaction.
func (s *setupTokenStore) Issue(ctx context.Context, actor ActorRef, accountID uuid.UUID) (*SetupToken, error) {
	var issued *SetupToken
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := s.IssueTx(ctx, tx, actor, accountID)
		if err != nil {
			return err
		}
		issued = token
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// IssueTx mints a fresh token and supersedes any outstanding unused tokens
// for the same account. Reissuing leaves at most one redeemable token alive.
func (s *setupTokenStore) IssueTx(ctx context.Context, tx bun.IDB, actor ActorRef, accountID uuid.UUID) (*SetupToken, error) {
	account := &Account{}
	err := tx.NewSelect().
		Model(account).
		Where("?TableAlias.id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account for setup token")
	}

	if _, err := tx.NewDelete().
		Model((*SetupToken)(nil)).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.used = FALSE").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to supersede setup tokens")
	}

	value, err := generateSetupTokenValue()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate setup token")
	}

	now := s.nowFn()
	record := &SetupToken{
		ID:        uuid.New(),
		Token:     value,
		AccountID: accountID,
		ExpiresAt: now.Add(SetupTokenTTL),
	}

	issued, err := s.repo.SetupTokens().CreateTx(ctx, tx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist setup token")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSetupTokenIssued,
		Actor:     actor,
		AccountID: accountID.String(),
		Metadata: map[string]any{
			"expires_at": issued.ExpiresAt,
		},
		OccurredAt: now,
	})

	return issued, nil
}

// Validate inspects a token inside a short read-only transaction.
func (s *setupTokenStore) Validate(ctx context.Context, token string) (*SetupTokenValidation, error) {
	var result *SetupTokenValidation
	err := s.repo.RunInReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		validation, err := s.ValidateTx(ctx, tx, token)
		if err != nil {
			return err
		}
		result = validation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateTx classifies the token without mutating it. Disqualifying reasons
// are checked in priority order: not found, already used, expired.
func (s *setupTokenStore) ValidateTx(ctx context.Context, tx bun.IDB, token string) (*SetupTokenValidation, error) {
	if token == "" {
		return &SetupTokenValidation{Status: SetupTokenStatusNotFound}, nil
	}

	record := &SetupToken{}
	err := tx.NewSelect().
		Model(record).
		Relation("Account").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return &SetupTokenValidation{Status: SetupTokenStatusNotFound}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up setup token")
	}

	if record.Used {
		return &SetupTokenValidation{Status: SetupTokenStatusAlreadyUsed, Token: record}, nil
	}

	if record.Expired(s.nowFn()) {
		return &SetupTokenValidation{Status: SetupTokenStatusExpired, Token: record}, nil
	}

	return &SetupTokenValidation{
		Status:  SetupTokenStatusValid,
		Token:   record,
		Account: record.Account,
	}, nil
}

// ConsumeTx atomically flips the token to used. The guard in the UPDATE makes
// concurrent redeemers race for a single winner; losers get the categorized
// failure for whatever state the token is actually in.
func (s *setupTokenStore) ConsumeTx(ctx context.Context, tx bun.IDB, token string) (*SetupToken, error) {
	now := s.nowFn()

	consumed := &SetupToken{}
	res, err := tx.NewUpdate().
		Model(consumed).
		Set("used = TRUE").
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.used = FALSE").
		Where("?TableAlias.expires_at > ?", now).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume setup token")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume setup token")
	}

	if affected == 0 {
		validation, err := s.ValidateTx(ctx, tx, token)
		if err != nil {
			return nil, err
		}
		if verr := validation.Err(); verr != nil {
			return nil, verr
		}
		// the token was valid a moment ago and the update still missed it:
		// a concurrent consumer won the race
		return nil, setupTokenStatusError(SetupTokenStatusAlreadyUsed)
	}

	return consumed, nil
}

// SweepExpired removes expired, never-redeemed tokens. The candidate set is
// resolved first; when it is empty no DELETE is issued at all.
func (s *setupTokenStore) SweepExpired(ctx context.Context) (int, error) {
	now := s.nowFn()
	swept := 0

	err := s.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var ids []uuid.UUID
		err := tx.NewSelect().
			Model((*SetupToken)(nil)).
			Column("id").
			Where("?TableAlias.used = FALSE").
			Where("?TableAlias.expires_at <= ?", now).
			Scan(ctx, &ids)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to collect expired setup tokens")
		}

		if len(ids) == 0 {
			return nil
		}

		res, err := tx.NewDelete().
			Model((*SetupToken)(nil)).
			Where("?TableAlias.id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired setup tokens")
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired setup tokens")
		}

		swept = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		s.logger.Info("swept %d expired setup tokens", swept)
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSetupTokenSwept,
			Actor:     ActorRef{Type: "system"},
			Metadata: map[string]any{
				"count": swept,
			},
			OccurredAt: now,
		})
	}

	return swept, nil
}

func (s *setupTokenStore) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := s.sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error for %s: %v", event.EventType, err)
	}
}

// generateSetupTokenValue returns a 32-byte random value, base64url encoded.
func generateSetupTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
