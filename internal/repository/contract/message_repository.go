package contract

import (
	"context"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	CreateBatch(ctx context.Context, messages []*entity.Message) error
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	MaxSeq(ctx context.Context, conversationId uuid.UUID) (int64, error)
	// LatestTimestamp is the zero time for a conversation without messages.
	LatestTimestamp(ctx context.Context, conversationId uuid.UUID) (time.Time, error)
	// TokenTotals sums token_count per conversation in one query.
	TokenTotals(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]int64, error)
	UsageByModel(ctx context.Context, conversationIds []uuid.UUID) ([]entity.ModelUsage, error)
}
