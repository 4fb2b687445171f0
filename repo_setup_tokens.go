package authcore

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func NewSetupTokensRepository(db *bun.DB) repository.Repository[*SetupToken] {
	handlers := repository.ModelHandlers[*SetupToken]{
		NewRecord: func() *SetupToken {
			return &SetupToken{}
		},
		GetID: func(record *SetupToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *SetupToken, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "token"
		},
	}
	return repository.NewRepository(db, handlers)
}
