package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Conversation struct {
	Id                 uuid.UUID         `gorm:"type:varchar(36);primaryKey"`
	Title              string            `gorm:"type:text;not null"`
	Status             string            `gorm:"type:varchar(20);not null;default:active;index"`
	StatusBeforeDelete string            `gorm:"type:varchar(20)"`
	Category           string            `gorm:"type:varchar(255);default:'';index"`
	EstimatedTokens    int               `gorm:"default:0"`
	Extra              datatypes.JSONMap `gorm:"type:text"`
	MessageCount       int               `gorm:"default:0"`
	CreatedAt          time.Time         `gorm:"index"`
	UpdatedAt          time.Time         `gorm:"index"`
	DeletedAt          *time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}
