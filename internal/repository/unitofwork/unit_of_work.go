package unitofwork

import (
	"context"

	"conversation-core/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	// BeginReadOnly gives several reads one consistent snapshot.
	BeginReadOnly(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	TagRepository() contract.TagRepository
	FtsRepository() contract.FtsRepository
	SummaryRepository() contract.SummaryRepository
	FileRepository() contract.FileRepository
}
