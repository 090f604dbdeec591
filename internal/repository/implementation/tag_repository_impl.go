package implementation

import (
	"context"

	"conversation-core/internal/entity"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/contract"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TagRepositoryImpl struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) contract.TagRepository {
	return &TagRepositoryImpl{db: db}
}

func (r *TagRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TagRepositoryImpl) EnsureExists(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]model.Tag, len(names))
	for i, name := range names {
		rows[i] = model.Tag{Name: name}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// AdjustUsage adds delta to each tag's counter, never going below zero.
func (r *TagRepositoryImpl) AdjustUsage(ctx context.Context, names []string, delta int) error {
	if len(names) == 0 || delta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Tag{}).
		Where("name IN ?", names).
		UpdateColumn("usage_count", gorm.Expr(
			"CASE WHEN usage_count + ? < 0 THEN 0 ELSE usage_count + ? END", delta, delta,
		)).Error
}

func (r *TagRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.TagUsage, error) {
	var models []model.Tag
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Tag{}), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	tags := make([]entity.TagUsage, len(models))
	for i, m := range models {
		tags[i] = entity.TagUsage{Name: m.Name, UsageCount: m.UsageCount}
	}
	return tags, nil
}

func (r *TagRepositoryImpl) LinkedNames(ctx context.Context, conversationId uuid.UUID) ([]string, error) {
	names := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&model.ConversationTag{}).
		Where("conversation_id = ?", conversationId).
		Order("tag_name ASC").
		Pluck("tag_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *TagRepositoryImpl) LinkedNamesFor(ctx context.Context, conversationIds []uuid.UUID) (map[uuid.UUID][]string, error) {
	result := make(map[uuid.UUID][]string, len(conversationIds))
	if len(conversationIds) == 0 {
		return result, nil
	}

	var links []model.ConversationTag
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIds).
		Order("conversation_id ASC").
		Order("tag_name ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		result[link.ConversationId] = append(result[link.ConversationId], link.TagName)
	}
	return result, nil
}

func (r *TagRepositoryImpl) CreateLinks(ctx context.Context, conversationId uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	links := make([]model.ConversationTag, len(names))
	for i, name := range names {
		links[i] = model.ConversationTag{ConversationId: conversationId, TagName: name}
	}
	return r.db.WithContext(ctx).Omit("Conversation").Create(&links).Error
}

func (r *TagRepositoryImpl) DeleteLinks(ctx context.Context, conversationId uuid.UUID, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND tag_name IN ?", conversationId, names).
		Delete(&model.ConversationTag{}).Error
}
