package dto

import (
	"time"

	"conversation-core/internal/entity"

	"github.com/google/uuid"
)

type MessageRequest struct {
	Role       string                 `json:"role" validate:"required,oneof=system user assistant"`
	Content    string                 `json:"content"`
	Provider   string                 `json:"provider"`
	Model      string                 `json:"model"`
	Timestamp  *time.Time             `json:"timestamp"`
	TokenCount int                    `json:"token_count" validate:"gte=0"`
	Metadata   map[string]interface{} `json:"metadata"`
}

func (r MessageRequest) ToEntity(conversationId uuid.UUID) *entity.Message {
	m := &entity.Message{
		ConversationId: conversationId,
		Role:           entity.MessageRole(r.Role),
		Content:        r.Content,
		Provider:       r.Provider,
		Model:          r.Model,
		TokenCount:     r.TokenCount,
		Metadata:       r.Metadata,
	}
	if r.Timestamp != nil {
		m.Timestamp = *r.Timestamp
	}
	return m
}

type CreateConversationRequest struct {
	Id        *uuid.UUID             `json:"id"`
	Title     string                 `json:"title" validate:"required,max=255"`
	Status    string                 `json:"status" validate:"omitempty,oneof=active archived pinned"`
	Category  string                 `json:"category"`
	Tags      []string               `json:"tags"`
	Extra     map[string]interface{} `json:"extra"`
	CreatedAt *time.Time             `json:"created_at"`
	Messages  []MessageRequest       `json:"messages" validate:"dive"`
}

func (r CreateConversationRequest) ToEntity() *entity.Conversation {
	c := &entity.Conversation{
		Title:  r.Title,
		Status: entity.ConversationStatus(r.Status),
		Metadata: entity.ConversationMetadata{
			Tags:     r.Tags,
			Category: r.Category,
			Extra:    r.Extra,
		},
	}
	if r.Id != nil {
		c.Id = *r.Id
	}
	if r.CreatedAt != nil {
		c.CreatedAt = *r.CreatedAt
	}
	for _, m := range r.Messages {
		c.Messages = append(c.Messages, m.ToEntity(c.Id))
	}
	return c
}

type CreateConversationResponse struct {
	Id      uuid.UUID `json:"id"`
	Outcome string    `json:"outcome"`
}

type UpdateConversationRequest struct {
	Id       uuid.UUID              `json:"-"`
	Title    string                 `json:"title" validate:"required,max=255"`
	Status   string                 `json:"status" validate:"required,oneof=active archived pinned"`
	Category string                 `json:"category"`
	Tags     []string               `json:"tags"`
	Extra    map[string]interface{} `json:"extra"`
}

// Apply copies the editable fields onto the stored conversation.
func (r UpdateConversationRequest) Apply(c *entity.Conversation) {
	c.Title = r.Title
	c.Status = entity.ConversationStatus(r.Status)
	c.Metadata.Category = r.Category
	c.Metadata.Tags = r.Tags
	if r.Extra != nil {
		c.Metadata.Extra = r.Extra
	}
}

type MessageResponse struct {
	Id         uuid.UUID              `json:"id"`
	Seq        int64                  `json:"seq"`
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Provider   string                 `json:"provider,omitempty"`
	Model      string                 `json:"model,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	TokenCount int                    `json:"token_count"`
	Metadata   map[string]interface{} `json:"metadata"`
}

func NewMessageResponse(m *entity.Message) MessageResponse {
	return MessageResponse{
		Id:         m.Id,
		Seq:        m.Seq,
		Role:       string(m.Role),
		Content:    m.Content,
		Provider:   m.Provider,
		Model:      m.Model,
		Timestamp:  m.Timestamp,
		TokenCount: m.TokenCount,
		Metadata:   m.Metadata,
	}
}

func NewMessageResponses(messages []*entity.Message) []MessageResponse {
	out := make([]MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = NewMessageResponse(m)
	}
	return out
}

type ConversationResponse struct {
	Id              uuid.UUID              `json:"id"`
	Title           string                 `json:"title"`
	Status          string                 `json:"status"`
	Category        string                 `json:"category"`
	Tags            []string               `json:"tags"`
	Extra           map[string]interface{} `json:"extra"`
	EstimatedTokens int                    `json:"estimated_tokens"`
	MessageCount    int                    `json:"message_count"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	DeletedAt       *time.Time             `json:"deleted_at,omitempty"`
	Messages        []MessageResponse      `json:"messages,omitempty"`
}

func NewConversationResponse(c *entity.Conversation) ConversationResponse {
	res := ConversationResponse{
		Id:              c.Id,
		Title:           c.Title,
		Status:          string(c.Status),
		Category:        c.Metadata.Category,
		Tags:            c.Metadata.Tags,
		Extra:           c.Metadata.Extra,
		EstimatedTokens: c.Metadata.EstimatedTokens,
		MessageCount:    c.MessageCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		DeletedAt:       c.DeletedAt,
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	if len(c.Messages) > 0 {
		res.Messages = NewMessageResponses(c.Messages)
	}
	return res
}

func NewConversationResponses(list []*entity.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, len(list))
	for i, c := range list {
		out[i] = NewConversationResponse(c)
	}
	return out
}

type ListConversationsQuery struct {
	Status         string `query:"status" validate:"omitempty,oneof=active archived pinned deleted"`
	Sort           string `query:"sort"`
	Limit          int    `query:"limit" validate:"gte=0"`
	Offset         int    `query:"offset" validate:"gte=0"`
	IncludeDeleted bool   `query:"include_deleted"`
}

func (q ListConversationsQuery) ToOptions() entity.ListOptions {
	return entity.ListOptions{
		Status:         entity.ConversationStatus(q.Status),
		Sort:           entity.SortOrder(q.Sort),
		Limit:          q.Limit,
		Offset:         q.Offset,
		IncludeDeleted: q.IncludeDeleted,
	}
}

type SaveSummaryRequest struct {
	Summary    string   `json:"summary" validate:"required"`
	KeyTopics  []string `json:"key_topics"`
	Model      string   `json:"model"`
	Confidence float64  `json:"confidence" validate:"gte=0,lte=1"`
}

func (r SaveSummaryRequest) ToEntity(conversationId uuid.UUID) *entity.ConversationSummary {
	return &entity.ConversationSummary{
		ConversationId: conversationId,
		Summary:        r.Summary,
		KeyTopics:      r.KeyTopics,
		Model:          r.Model,
		Confidence:     r.Confidence,
	}
}

type ConversationIdsRequest struct {
	Ids []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type ReassignOrphansResponse struct {
	TargetId uuid.UUID `json:"target_id"`
	Moved    int64     `json:"moved"`
}
