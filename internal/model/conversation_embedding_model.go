package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ConversationEmbedding is one chunk of a conversation's vector namespace.
type ConversationEmbedding struct {
	Id             uuid.UUID       `gorm:"type:varchar(36);primaryKey"`
	ConversationId uuid.UUID       `gorm:"type:varchar(36);not null;index"`
	ChunkIndex     int             `gorm:"default:0"`
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:text"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ConversationEmbedding) TableName() string {
	return "conversation_embeddings"
}
