package vectorindex

import (
	"context"
	"errors"
	"math"
	"sort"

	"conversation-core/internal/model"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

var ErrDimensionMismatch = errors.New("embedding dimensions differ within namespace")

// Chunk is one embedded slice of a conversation.
type Chunk struct {
	Document  string
	Embedding []float32
}

type Match struct {
	ChunkIndex int     `json:"chunk_index"`
	Document   string  `json:"document"`
	Score      float64 `json:"score"`
}

// Index stores one embedding namespace per conversation. Vectors use the
// pgvector text encoding so the same table works on both supported engines.
type Index struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Index {
	return &Index{db: db}
}

// Upsert replaces the conversation's namespace with chunks.
func (i *Index) Upsert(ctx context.Context, conversationId uuid.UUID, chunks []Chunk) error {
	if len(chunks) > 1 {
		dim := len(chunks[0].Embedding)
		for _, c := range chunks[1:] {
			if len(c.Embedding) != dim {
				return ErrDimensionMismatch
			}
		}
	}

	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationId).Delete(&model.ConversationEmbedding{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}

		rows := make([]*model.ConversationEmbedding, len(chunks))
		for idx, c := range chunks {
			rows[idx] = &model.ConversationEmbedding{
				Id:             uuid.New(),
				ConversationId: conversationId,
				ChunkIndex:     idx,
				Document:       c.Document,
				EmbeddingValue: pgvector.NewVector(c.Embedding),
			}
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// DeleteNamespace drops every vector of the conversation.
func (i *Index) DeleteNamespace(ctx context.Context, conversationId uuid.UUID) error {
	return i.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Delete(&model.ConversationEmbedding{}).Error
}

func (i *Index) Count(ctx context.Context, conversationId uuid.UUID) (int64, error) {
	var count int64
	err := i.db.WithContext(ctx).
		Model(&model.ConversationEmbedding{}).
		Where("conversation_id = ?", conversationId).
		Count(&count).Error
	return count, err
}

// Nearest ranks the namespace's chunks by cosine similarity to query.
func (i *Index) Nearest(ctx context.Context, conversationId uuid.UUID, query []float32, k int) ([]Match, error) {
	var rows []*model.ConversationEmbedding
	err := i.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("chunk_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		vec := row.EmbeddingValue.Slice()
		if len(vec) != len(query) {
			return nil, ErrDimensionMismatch
		}
		matches = append(matches, Match{
			ChunkIndex: row.ChunkIndex,
			Document:   row.Document,
			Score:      cosine(query, vec),
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
