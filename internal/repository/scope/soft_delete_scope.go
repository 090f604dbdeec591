package scope

import (
	"conversation-core/internal/entity"

	"gorm.io/gorm"
)

// Soft deletion is a status flip, not gorm.DeletedAt, so these scopes match on status.

// OnlySoftDeleted keeps rows of soft-deleted conversations.
func OnlySoftDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(entity.ConversationStatusDeleted))
}

// ExcludeSoftDelete hides soft-deleted conversations.
func ExcludeSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", string(entity.ConversationStatusDeleted))
}
