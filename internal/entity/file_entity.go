package entity

import (
	"time"

	"github.com/google/uuid"
)

// FileInfo describes a physical attachment owned by a conversation.
type FileInfo struct {
	Id             uuid.UUID `json:"id"`
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	FileName       string    `json:"file_name" validate:"required,max=255"`
	StoragePath    string    `json:"storage_path" validate:"required"`
	MimeType       string    `json:"mime_type"`
	SizeBytes      int64     `json:"size_bytes" validate:"gte=0"`
	CreatedAt      time.Time `json:"created_at"`
}
