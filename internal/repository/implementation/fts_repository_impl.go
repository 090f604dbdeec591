package implementation

import (
	"context"
	"time"

	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FtsRepositoryImpl struct {
	db *gorm.DB
}

func NewFtsRepository(db *gorm.DB) contract.FtsRepository {
	return &FtsRepositoryImpl{db: db}
}

// Save replaces the whole shadow row.
func (r *FtsRepositoryImpl) Save(ctx context.Context, row *model.ConversationFts) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Omit("Conversation").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "content", "title_folded", "content_folded", "tags", "category", "updated_at"}),
		}).
		Create(row).Error
}

// AppendContent adds one message's text, and its folded form, to the end of the content columns.
func (r *FtsRepositoryImpl) AppendContent(ctx context.Context, conversationId uuid.UUID, text, folded string) error {
	res := r.db.WithContext(ctx).
		Model(&model.ConversationFts{}).
		Where("conversation_id = ?", conversationId).
		UpdateColumns(map[string]interface{}{
			"content": gorm.Expr(
				"CASE WHEN content IS NULL OR content = '' THEN ? ELSE content || ? || ? END",
				text, "\n", text,
			),
			"content_folded": gorm.Expr(
				"CASE WHEN content_folded IS NULL OR content_folded = '' THEN ? ELSE content_folded || ? || ? END",
				folded, "\n", folded,
			),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *FtsRepositoryImpl) FindByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]*model.ConversationFts, error) {
	result := make(map[uuid.UUID]*model.ConversationFts, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var rows []*model.ConversationFts
	if err := r.db.WithContext(ctx).Where("conversation_id IN ?", conversationIds).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ConversationId] = row
	}
	return result, nil
}

func (r *FtsRepositoryImpl) Delete(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.ConversationFts{}).Error
}
