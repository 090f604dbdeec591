package contract

import (
	"context"

	"conversation-core/internal/entity"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
)

type TagRepository interface {
	// EnsureExists inserts missing tag rows at usage 0.
	EnsureExists(ctx context.Context, names []string) error
	AdjustUsage(ctx context.Context, names []string, delta int) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.TagUsage, error)

	LinkedNames(ctx context.Context, conversationId uuid.UUID) ([]string, error)
	LinkedNamesFor(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID][]string, error)
	CreateLinks(ctx context.Context, conversationId uuid.UUID, names []string) error
	DeleteLinks(ctx context.Context, conversationId uuid.UUID, names []string) error
}
