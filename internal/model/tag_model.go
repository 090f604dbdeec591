package model

import (
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	Name       string    `gorm:"type:varchar(50);primaryKey"`
	UsageCount int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Tag) TableName() string {
	return "tags"
}

type ConversationTag struct {
	ConversationId uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	TagName        string    `gorm:"type:varchar(50);primaryKey;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (ConversationTag) TableName() string {
	return "conversation_tags"
}
