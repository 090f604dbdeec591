package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/model"
	"conversation-core/internal/repository/specification"
	"conversation-core/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ftsShadow maintains the denormalised search row of a conversation. Like the
// tag ledger it is only reachable from the store's transactional methods.
type ftsShadow struct {
	sanitizer Sanitizer
}

// rebuild rewrites the whole row from the conversation and its stored messages.
func (f ftsShadow) rebuild(ctx context.Context, uow unitofwork.UnitOfWork, conversation *entity.Conversation, tags []string) error {
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversation.Id},
		specification.MessageOrder{},
	)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	title := f.sanitizer.SanitizeText(conversation.Title)
	content := strings.Join(parts, "\n")

	return uow.FtsRepository().Save(ctx, &model.ConversationFts{
		ConversationId: conversation.Id,
		Title:          title,
		Content:        content,
		TitleFolded:    fold(title),
		ContentFolded:  fold(content),
		Tags:           strings.Join(tags, " "),
		Category:       f.sanitizer.SanitizeText(conversation.Metadata.Category),
		UpdatedAt:      time.Now().UTC(),
	})
}

// append adds one stored, already sanitised message. The content column follows
// message order, so a message older than latest, or a missing row, means a rebuild.
func (f ftsShadow) append(ctx context.Context, uow unitofwork.UnitOfWork, conversation *entity.Conversation, message *entity.Message, latest time.Time) error {
	if message.Timestamp.Before(latest) {
		return f.refresh(ctx, uow, conversation)
	}
	if message.Content == "" {
		return nil
	}
	err := uow.FtsRepository().AppendContent(ctx, conversation.Id, message.Content, fold(message.Content))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return f.refresh(ctx, uow, conversation)
	}
	return err
}

// refresh rebuilds the row with the conversation's currently linked tags.
func (f ftsShadow) refresh(ctx context.Context, uow unitofwork.UnitOfWork, conversation *entity.Conversation) error {
	tags, err := uow.TagRepository().LinkedNames(ctx, conversation.Id)
	if err != nil {
		return err
	}
	return f.rebuild(ctx, uow, conversation, tags)
}

func (f ftsShadow) remove(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID) error {
	return uow.FtsRepository().Delete(ctx, conversationId)
}

// fold must agree with the lower-casing specification.LikePattern applies to search terms.
func fold(s string) string {
	return strings.ToLower(s)
}
