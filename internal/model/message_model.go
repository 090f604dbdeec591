package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Message struct {
	Id             uuid.UUID         `gorm:"type:varchar(36);primaryKey"`
	ConversationId uuid.UUID         `gorm:"type:varchar(36);not null;index:idx_messages_conversation_order,priority:1;uniqueIndex:idx_messages_conversation_seq,priority:1"`
	Seq            int64             `gorm:"not null;index:idx_messages_conversation_order,priority:3;uniqueIndex:idx_messages_conversation_seq,priority:2"`
	Role           string            `gorm:"type:varchar(20);not null"`
	Content        string            `gorm:"type:text;not null"`
	Provider       string            `gorm:"type:varchar(50);default:''"`
	Model          string            `gorm:"type:varchar(100);default:'';index"`
	Timestamp      time.Time         `gorm:"column:sent_at;not null;index:idx_messages_conversation_order,priority:2"`
	TokenCount     int               `gorm:"default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:text"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}
