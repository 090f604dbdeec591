package implementation

import (
	"context"
	"errors"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/mapper"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *MessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	return r.db.WithContext(ctx).Omit("Conversation").Create(m).Error
}

func (r *MessageRepositoryImpl) CreateBatch(ctx context.Context, messages []*entity.Message) error {
	if len(messages) == 0 {
		return nil
	}
	models := make([]*model.Message, len(messages))
	for i, msg := range messages {
		models[i] = r.mapper.MessageToModel(msg)
	}
	return r.db.WithContext(ctx).Omit("Conversation").CreateInBatches(models, 100).Error
}

func (r *MessageRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.Message{}).Error
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageRepositoryImpl) LatestTimestamp(ctx context.Context, conversationId uuid.UUID) (time.Time, error) {
	var latest model.Message
	err := r.db.WithContext(ctx).
		Select("sent_at").
		Where("conversation_id = ?", conversationId).
		Order("sent_at DESC").
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return latest.Timestamp.UTC(), nil
}

func (r *MessageRepositoryImpl) MaxSeq(ctx context.Context, conversationId uuid.UUID) (int64, error) {
	var maxSeq int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ?", conversationId).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq, nil
}

func (r *MessageRepositoryImpl) TokenTotals(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var rows []struct {
		ConversationId uuid.UUID
		Total          int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("conversation_id, COALESCE(SUM(token_count), 0) AS total").
		Where("conversation_id IN ?", conversationIds).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ConversationId] = row.Total
	}
	return result, nil
}

func (r *MessageRepositoryImpl) UsageByModel(ctx context.Context, conversationIds []uuid.UUID) ([]entity.ModelUsage, error) {
	usage := make([]entity.ModelUsage, 0)
	if len(conversationIds) == 0 {
		return usage, nil
	}

	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("provider, model, COUNT(*) AS message_count, COALESCE(SUM(token_count), 0) AS total_tokens").
		Where("conversation_id IN ? AND model <> ''", conversationIds).
		Group("provider, model").
		Order("message_count DESC").
		Order("provider ASC").
		Order("model ASC").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	return usage, nil
}
