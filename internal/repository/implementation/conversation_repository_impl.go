package implementation

import (
	"context"
	"errors"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/mapper"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"
	"conversation-core/internal/repository/scope"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.Conversation) error {
	m := r.mapper.ConversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	conversation.CreatedAt = m.CreatedAt
	conversation.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *ConversationRepositoryImpl) Update(ctx context.Context, conversation *entity.Conversation) error {
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", conversation.Id).
		UpdateColumns(map[string]interface{}{
			"title":            conversation.Title,
			"status":           string(conversation.Status),
			"category":         conversation.Metadata.Category,
			"estimated_tokens": conversation.Metadata.EstimatedTokens,
			"extra":            datatypes.JSONMap(conversation.Metadata.Extra),
			"message_count":    conversation.MessageCount,
			"updated_at":       conversation.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ConversationRepositoryImpl) Touch(ctx context.Context, id uuid.UUID, messageCount int, updatedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"message_count": messageCount,
			"updated_at":    updatedAt,
		}).Error
}

// SoftDelete remembers the current status so Restore can put it back.
func (r *ConversationRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Scopes(scope.ExcludeSoftDelete).
		UpdateColumns(map[string]interface{}{
			"status_before_delete": gorm.Expr("status"),
			"status":               string(entity.ConversationStatusDeleted),
			"deleted_at":           at,
			"updated_at":           at,
		}).Error
}

func (r *ConversationRepositoryImpl) Restore(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Scopes(scope.OnlySoftDeleted).
		UpdateColumns(map[string]interface{}{
			"status":               gorm.Expr("COALESCE(NULLIF(status_before_delete, ''), ?)", string(entity.ConversationStatusActive)),
			"status_before_delete": "",
			"deleted_at":           nil,
			"updated_at":           at,
		}).Error
}

func (r *ConversationRepositoryImpl) DeleteUnscoped(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Conversation{}).Error
}

func (r *ConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	var m model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Conversation{}), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *ConversationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	var models []*model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Conversation{}), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ConversationsToEntities(models), nil
}

func (r *ConversationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Conversation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ConversationRepositoryImpl) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Distinct("category").
		Where("category <> ''").
		Scopes(scope.ExcludeSoftDelete).
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
