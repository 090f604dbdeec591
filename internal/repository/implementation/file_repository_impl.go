package implementation

import (
	"context"

	"conversation-core/internal/entity"
	"conversation-core/internal/mapper"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"
	"conversation-core/internal/repository/scope"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewFileRepository(db *gorm.DB) contract.FileRepository {
	return &FileRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *FileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FileRepositoryImpl) Create(ctx context.Context, file *entity.FileInfo) error {
	m := r.mapper.FileToModel(file)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	file.CreatedAt = m.CreatedAt
	return nil
}

func (r *FileRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FileInfo, error) {
	var models []*model.FileRecord
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.FileRecord{}), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	files := make([]*entity.FileInfo, len(models))
	for i, m := range models {
		files[i] = r.mapper.FileToEntity(m)
	}
	return files, nil
}

func (r *FileRepositoryImpl) CountByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var rows []struct {
		ConversationId uuid.UUID
		Total          int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Select("conversation_id, COUNT(*) AS total").
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

func (r *FileRepositoryImpl) FindByConversationIds(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID][]*entity.FileInfo, error) {
	result := make(map[uuid.UUID][]*entity.FileInfo, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var models []*model.FileRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIds).
		Scopes(scope.OrderByCreatedAsc).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	for _, m := range models {
		result[m.ConversationId] = append(result[m.ConversationId], r.mapper.FileToEntity(m))
	}
	return result, nil
}

func (r *FileRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.FileRecord{}).Error
}

// ReassignFromSoftDeleted moves every file owned by a soft-deleted conversation
// to targetId in one statement.
func (r *FileRepositoryImpl) ReassignFromSoftDeleted(ctx context.Context, targetId uuid.UUID) (int64, error) {
	deleted := r.db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Conversation{}).
		Select("id").
		Where("status = ?", string(entity.ConversationStatusDeleted))

	res := r.db.WithContext(ctx).
		Model(&model.FileRecord{}).
		Where("conversation_id IN (?)", deleted).
		Where("conversation_id <> ?", targetId).
		UpdateColumn("conversation_id", targetId)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
