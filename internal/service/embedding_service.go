package service

import (
	"context"
	"errors"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/logger"
	"conversation-core/pkg/metrics"
	"conversation-core/pkg/vectorindex"

	"github.com/google/uuid"
)

const moduleEmbeddings = "EMBEDDINGS"

// IEmbeddingService manages the per-conversation vector namespace that hard
// delete cleans up. Embeddings are produced by the caller.
type IEmbeddingService interface {
	Index(ctx context.Context, conversationId uuid.UUID, chunks []vectorindex.Chunk) error
	Query(ctx context.Context, conversationId uuid.UUID, vector []float32, k int) ([]vectorindex.Match, error)
}

type embeddingService struct {
	store   IConversationService
	index   *vectorindex.Index
	metrics *metrics.Metrics
	logger  logger.ILogger
}

func NewEmbeddingService(store IConversationService, index *vectorindex.Index, m *metrics.Metrics, log logger.ILogger) IEmbeddingService {
	return &embeddingService{
		store:   store,
		index:   index,
		metrics: m,
		logger:  log,
	}
}

func (s *embeddingService) Index(ctx context.Context, conversationId uuid.UUID, chunks []vectorindex.Chunk) (err error) {
	ctx, span := tracer().Start(ctx, "EmbeddingService.Index")
	defer finish(span, s.metrics, "index_embeddings", time.Now(), &err)

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return apperror.Invalid("embedding", "must not be empty")
		}
	}
	if err := s.requireLive(ctx, conversationId); err != nil {
		return err
	}

	if err := s.index.Upsert(ctx, conversationId, chunks); err != nil {
		if errors.Is(err, vectorindex.ErrDimensionMismatch) {
			return apperror.Invalid("embedding", err.Error())
		}
		return apperror.Storage("upsert embeddings", err)
	}
	s.logger.Info(moduleEmbeddings, "Embeddings indexed", map[string]interface{}{
		"conversation_id": conversationId,
		"chunks":          len(chunks),
	})
	return nil
}

func (s *embeddingService) Query(ctx context.Context, conversationId uuid.UUID, vector []float32, k int) (matches []vectorindex.Match, err error) {
	ctx, span := tracer().Start(ctx, "EmbeddingService.Query")
	defer finish(span, s.metrics, "query_embeddings", time.Now(), &err)

	if len(vector) == 0 {
		return nil, apperror.Invalid("embedding", "must not be empty")
	}
	if k < 0 {
		return nil, apperror.Invalid("k", "must not be negative")
	}
	if k == 0 {
		k = 5
	}

	matches, err = s.index.Nearest(ctx, conversationId, vector, k)
	if errors.Is(err, vectorindex.ErrDimensionMismatch) {
		return nil, apperror.Invalid("embedding", err.Error())
	}
	if err != nil {
		return nil, apperror.Storage("query embeddings", err)
	}
	return matches, nil
}

func (s *embeddingService) requireLive(ctx context.Context, conversationId uuid.UUID) error {
	conversation, err := s.store.Get(ctx, conversationId, false)
	if err != nil {
		return err
	}
	if conversation == nil {
		return apperror.NotFound("conversation", conversationId)
	}
	if conversation.Status == entity.ConversationStatusDeleted {
		return apperror.Invalid("conversation_id", "conversation is deleted")
	}
	return nil
}
