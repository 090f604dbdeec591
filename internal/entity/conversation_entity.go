package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusArchived ConversationStatus = "archived"
	ConversationStatusPinned   ConversationStatus = "pinned"
	ConversationStatusDeleted  ConversationStatus = "deleted"
)

// ConversationMetadata groups the descriptive, non-structural attributes of a conversation.
type ConversationMetadata struct {
	Tags            []string
	Category        string
	Extra           map[string]interface{}
	EstimatedTokens int `validate:"gte=0"`
}

type Conversation struct {
	Id           uuid.UUID
	Title        string             `validate:"required,max=255"`
	Status       ConversationStatus `validate:"required,oneof=active archived pinned deleted"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
	Metadata     ConversationMetadata
	Messages     []*Message

	// DeletedAt is set while the conversation is soft-deleted.
	DeletedAt *time.Time
}

// HasDialogue reports whether at least one user or assistant message is present.
func (c *Conversation) HasDialogue() bool {
	for _, m := range c.Messages {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			return true
		}
	}
	return false
}

type CreateOutcome string

const (
	CreateOutcomeCreated CreateOutcome = "created"
	CreateOutcomeSkipped CreateOutcome = "skipped"
)
