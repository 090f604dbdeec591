package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationSummary struct {
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
	Summary        string    `json:"summary" validate:"required"`
	KeyTopics      []string  `json:"key_topics"`
	GeneratedAt    time.Time `json:"generated_at"`
	Model          string    `json:"model"`
	Confidence     float64   `json:"confidence" validate:"gte=0,lte=1"`
}
