package service

import (
	"context"

	"github.com/google/uuid"
)

// Sanitizer cleans text before it is stored. Implementations must be idempotent.
type Sanitizer interface {
	SanitizeText(s string) string
	SanitizeRich(s string) string
}

// FileStore owns the bytes of attached files.
type FileStore interface {
	Delete(ctx context.Context, storagePath string) error
}

// VectorIndex owns the per-conversation embedding namespace.
type VectorIndex interface {
	DeleteNamespace(ctx context.Context, conversationId uuid.UUID) error
}
