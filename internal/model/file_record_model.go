package model

import (
	"time"

	"github.com/google/uuid"
)

type FileRecord struct {
	Id             uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	ConversationId uuid.UUID `gorm:"type:varchar(36);not null;index"`
	FileName       string    `gorm:"type:varchar(255);not null"`
	StoragePath    string    `gorm:"type:text;not null"`
	MimeType       string    `gorm:"type:varchar(100)"`
	SizeBytes      int64     `gorm:"default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (FileRecord) TableName() string {
	return "file_records"
}
