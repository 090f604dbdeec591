package mapper

import (
	"conversation-core/internal/entity"
	"conversation-core/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

// Conversation Mappers

// ConversationToEntity maps the row; tags and messages live in other tables and are attached by the caller.
func (m *ConversationMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	extra := map[string]interface{}(c.Extra)
	if extra == nil {
		extra = make(map[string]interface{})
	}

	return &entity.Conversation{
		Id:           c.Id,
		Title:        c.Title,
		Status:       entity.ConversationStatus(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: c.MessageCount,
		Metadata: entity.ConversationMetadata{
			Tags:            []string{},
			Category:        c.Category,
			Extra:           extra,
			EstimatedTokens: c.EstimatedTokens,
		},
		DeletedAt: c.DeletedAt,
	}
}

func (m *ConversationMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	return &model.Conversation{
		Id:              c.Id,
		Title:           c.Title,
		Status:          string(c.Status),
		Category:        c.Metadata.Category,
		EstimatedTokens: c.Metadata.EstimatedTokens,
		Extra:           datatypes.JSONMap(c.Metadata.Extra),
		MessageCount:    c.MessageCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		DeletedAt:       c.DeletedAt,
	}
}

func (m *ConversationMapper) ConversationsToEntities(models []*model.Conversation) []*entity.Conversation {
	entities := make([]*entity.Conversation, len(models))
	for i, c := range models {
		entities[i] = m.ConversationToEntity(c)
	}
	return entities
}

// Message Mappers

func (m *ConversationMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	metadata := map[string]interface{}(msg.Metadata)
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           entity.MessageRole(msg.Role),
		Content:        msg.Content,
		Provider:       msg.Provider,
		Model:          msg.Model,
		Timestamp:      msg.Timestamp,
		TokenCount:     msg.TokenCount,
		Metadata:       metadata,
		Seq:            msg.Seq,
	}
}

func (m *ConversationMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Seq:            msg.Seq,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Provider:       msg.Provider,
		Model:          msg.Model,
		Timestamp:      msg.Timestamp,
		TokenCount:     msg.TokenCount,
		Metadata:       datatypes.JSONMap(msg.Metadata),
	}
}

func (m *ConversationMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}

// Summary Mappers

func (m *ConversationMapper) SummaryToEntity(s *model.ConversationSummary) *entity.ConversationSummary {
	if s == nil {
		return nil
	}

	topics := []string(s.KeyTopics)
	if topics == nil {
		topics = []string{}
	}

	return &entity.ConversationSummary{
		ConversationId: s.ConversationId,
		Summary:        s.Summary,
		KeyTopics:      topics,
		GeneratedAt:    s.GeneratedAt,
		Model:          s.Model,
		Confidence:     s.Confidence,
	}
}

func (m *ConversationMapper) SummaryToModel(s *entity.ConversationSummary) *model.ConversationSummary {
	if s == nil {
		return nil
	}

	return &model.ConversationSummary{
		ConversationId: s.ConversationId,
		Summary:        s.Summary,
		KeyTopics:      datatypes.JSONSlice[string](s.KeyTopics),
		GeneratedAt:    s.GeneratedAt,
		Model:          s.Model,
		Confidence:     s.Confidence,
	}
}

// File Mappers

func (m *ConversationMapper) FileToEntity(f *model.FileRecord) *entity.FileInfo {
	if f == nil {
		return nil
	}

	return &entity.FileInfo{
		Id:             f.Id,
		ConversationId: f.ConversationId,
		FileName:       f.FileName,
		StoragePath:    f.StoragePath,
		MimeType:       f.MimeType,
		SizeBytes:      f.SizeBytes,
		CreatedAt:      f.CreatedAt,
	}
}

func (m *ConversationMapper) FileToModel(f *entity.FileInfo) *model.FileRecord {
	if f == nil {
		return nil
	}

	return &model.FileRecord{
		Id:             f.Id,
		ConversationId: f.ConversationId,
		FileName:       f.FileName,
		StoragePath:    f.StoragePath,
		MimeType:       f.MimeType,
		SizeBytes:      f.SizeBytes,
		CreatedAt:      f.CreatedAt,
	}
}
