package contract

import (
	"context"

	"conversation-core/internal/entity"

	"github.com/google/uuid"
)

type SummaryRepository interface {
	Upsert(ctx context.Context, summary *entity.ConversationSummary) error
	FindOne(ctx context.Context, conversationId uuid.UUID) (*entity.ConversationSummary, error)
	Delete(ctx context.Context, conversationId uuid.UUID) error
}
