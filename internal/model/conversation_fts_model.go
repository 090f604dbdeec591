package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationFts is the denormalised search row kept in lockstep with a conversation.
// The folded columns hold Unicode lower-cased copies for matching, since the
// embedded engine's LOWER() only folds ASCII.
type ConversationFts struct {
	ConversationId uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Title          string    `gorm:"type:text"`
	Content        string    `gorm:"type:text"`
	TitleFolded    string    `gorm:"type:text"`
	ContentFolded  string    `gorm:"type:text"`
	Tags           string    `gorm:"type:text"`
	Category       string    `gorm:"type:text"`
	UpdatedAt      time.Time

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (ConversationFts) TableName() string {
	return "conversation_fts"
}
