package contract

import (
	"context"

	"conversation-core/internal/entity"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
)

type FileRepository interface {
	Create(ctx context.Context, file *entity.FileInfo) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FileInfo, error)
	// CountByConversationIds and FindByConversationIds each issue a single query.
	CountByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]int64, error)
	FindByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID][]*entity.FileInfo, error)
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
	ReassignFromSoftDeleted(ctx context.Context, targetId uuid.UUID) (int64, error)
}
