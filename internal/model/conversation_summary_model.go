package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConversationSummary struct {
	ConversationId uuid.UUID                   `gorm:"type:varchar(36);primaryKey"`
	Summary        string                      `gorm:"type:text;not null"`
	KeyTopics      datatypes.JSONSlice[string] `gorm:"type:text"`
	GeneratedAt    time.Time
	Model          string  `gorm:"type:varchar(100)"`
	Confidence     float64 `gorm:"default:0"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (ConversationSummary) TableName() string {
	return "conversation_summaries"
}
