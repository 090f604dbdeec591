package contract

import (
	"context"

	"conversation-core/internal/model"

	"github.com/google/uuid"
)

type FtsRepository interface {
	Save(ctx context.Context, row *model.ConversationFts) error
	AppendContent(ctx context.Context, conversationId uuid.UUID, text, folded string) error
	FindByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]*model.ConversationFts, error)
	Delete(ctx context.Context, conversationId uuid.UUID) error
}
