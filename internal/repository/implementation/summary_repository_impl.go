package implementation

import (
	"context"
	"errors"

	"conversation-core/internal/entity"
	"conversation-core/internal/mapper"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SummaryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewSummaryRepository(db *gorm.DB) contract.SummaryRepository {
	return &SummaryRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *SummaryRepositoryImpl) Upsert(ctx context.Context, summary *entity.ConversationSummary) error {
	m := r.mapper.SummaryToModel(summary)
	return r.db.WithContext(ctx).
		Omit("Conversation").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "key_topics", "generated_at", "model", "confidence"}),
		}).
		Create(m).Error
}

func (r *SummaryRepositoryImpl) FindOne(ctx context.Context, conversationId uuid.UUID) (*entity.ConversationSummary, error) {
	var m model.ConversationSummary
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SummaryToEntity(&m), nil
}

func (r *SummaryRepositoryImpl) Delete(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.ConversationSummary{}).Error
}
