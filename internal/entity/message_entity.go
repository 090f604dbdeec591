package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID   `validate:"required"`
	Role           MessageRole `validate:"required,oneof=system user assistant"`
	Content        string
	Provider       string
	Model          string
	Timestamp      time.Time
	TokenCount     int `validate:"gte=0"`
	Metadata       map[string]interface{}

	// Seq is the per-conversation insertion sequence used to order messages
	// sharing a timestamp. Assigned by the store.
	Seq int64
}

// EstimateTokens is the rough four-runes-per-token heuristic used when a
// provider did not report usage.
func EstimateTokens(content string) int {
	n := len([]rune(content))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
