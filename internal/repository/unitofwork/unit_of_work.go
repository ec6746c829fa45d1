package unitofwork

import (
	"context"

	"ai-chat-be/internal/repository/contract"
)

// UnitOfWork hands out repositories bound to the pool, or to a transaction between Begin
// and Commit/Rollback.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ChatRepository() contract.ChatRepository
	MessageRepository() contract.MessageRepository
	DocumentRepository() contract.DocumentRepository
	SuggestionRepository() contract.SuggestionRepository
}
