package service

import (
	"context"
	"fmt"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/repository/specification"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const moduleLifecycle = "LIFECYCLE"

// Delete soft-deletes (status flip, reversible) or hard-deletes (row removal,
// terminal) a conversation. Soft-deleting an already deleted conversation is a no-op.
func (s *conversationService) Delete(ctx context.Context, id uuid.UUID, soft bool) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.Delete", trace.WithAttributes(
		attribute.String("conversation.id", id.String()),
		attribute.Bool("soft", soft),
	))
	op := "hard_delete"
	if soft {
		op = "soft_delete"
	}
	defer finish(span, s.metrics, op, time.Now(), &err)

	if soft {
		return s.softDelete(ctx, id)
	}
	return s.hardDelete(ctx, id)
}

func (s *conversationService) softDelete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin soft delete", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", id)
	}
	if conversation.Status == entity.ConversationStatusDeleted {
		return nil
	}

	at := s.now()
	if at.Before(conversation.UpdatedAt) {
		at = conversation.UpdatedAt
	}
	if err := uow.ConversationRepository().SoftDelete(ctx, id, at); err != nil {
		return apperror.Storage("soft delete conversation", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit soft delete", err)
	}

	s.afterWrite(ctx, EventConversationDeleted, id, map[string]interface{}{
		"previous_status": string(conversation.Status),
	})
	s.logger.Info(moduleLifecycle, "Conversation soft-deleted", map[string]interface{}{
		"conversation_id": id,
		"previous_status": conversation.Status,
	})
	return nil
}

// hardDelete removes the conversation and everything it owns in one transaction,
// then asks the external collaborators to drop their resources. Cleanup
// failures are logged and never undo the committed deletion.
func (s *conversationService) hardDelete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin hard delete", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", id)
	}

	files, err := uow.FileRepository().FindAll(ctx, specification.ByConversationID{ConversationID: id})
	if err != nil {
		return apperror.Storage("find files", err)
	}

	if err := s.ledger.release(ctx, uow, id); err != nil {
		return apperror.Storage("release tags", err)
	}
	if err := uow.MessageRepository().DeleteByConversationId(ctx, id); err != nil {
		return apperror.Storage("delete messages", err)
	}
	if err := s.shadow.remove(ctx, uow, id); err != nil {
		return apperror.Storage("delete search row", err)
	}
	if err := uow.SummaryRepository().Delete(ctx, id); err != nil {
		return apperror.Storage("delete summary", err)
	}
	if err := uow.FileRepository().DeleteByConversationId(ctx, id); err != nil {
		return apperror.Storage("delete file records", err)
	}
	if err := uow.ConversationRepository().DeleteUnscoped(ctx, id); err != nil {
		return apperror.Storage("delete conversation", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit hard delete", err)
	}

	s.afterWrite(ctx, EventConversationPurged, id, map[string]interface{}{
		"files": len(files),
	})
	s.logger.Info(moduleLifecycle, "Conversation hard-deleted", map[string]interface{}{
		"conversation_id": id,
		"files":           len(files),
	})

	s.cleanupExternal(ctx, id, files)
	return nil
}

// cleanupExternal runs every compensating action even when earlier ones fail.
func (s *conversationService) cleanupExternal(ctx context.Context, id uuid.UUID, files []*entity.FileInfo) {
	warning := &apperror.PartialCleanupWarning{ConversationID: id}

	if s.fileStore != nil {
		for _, f := range files {
			if err := s.fileStore.Delete(ctx, f.StoragePath); err != nil {
				warning.Add(fmt.Errorf("file %s (%s): %w", f.Id, f.StoragePath, err))
				s.metrics.CleanupFailed("file")
			}
		}
	}

	if s.vectorIndex != nil {
		if err := s.vectorIndex.DeleteNamespace(ctx, id); err != nil {
			warning.Add(fmt.Errorf("vector namespace: %w", err))
			s.metrics.CleanupFailed("vector_index")
		}
	}

	if warning.HasFailures() {
		s.logger.Warn(moduleLifecycle, "Partial cleanup after hard delete", map[string]interface{}{
			"conversation_id": id,
			"failures":        len(warning.Failures),
			"error":           warning.Error(),
		})
	}
}

// Restore flips a soft-deleted conversation back to the status it had before.
// Restoring a conversation that is not deleted is a no-op.
func (s *conversationService) Restore(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.Restore",
		trace.WithAttributes(attribute.String("conversation.id", id.String())))
	defer finish(span, s.metrics, "restore", time.Now(), &err)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin restore", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", id)
	}
	if conversation.Status != entity.ConversationStatusDeleted {
		return nil
	}

	at := s.now()
	if at.Before(conversation.UpdatedAt) {
		at = conversation.UpdatedAt
	}
	if err := uow.ConversationRepository().Restore(ctx, id, at); err != nil {
		return apperror.Storage("restore conversation", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit restore", err)
	}

	s.afterWrite(ctx, EventConversationRestore, id, nil)
	s.logger.Info(moduleLifecycle, "Conversation restored", map[string]interface{}{
		"conversation_id": id,
	})
	return nil
}

// ReassignOrphans moves every file of a soft-deleted conversation onto
// targetId with a single UPDATE and returns how many records moved.
func (s *conversationService) ReassignOrphans(ctx context.Context, targetId uuid.UUID) (moved int64, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.ReassignOrphans",
		trace.WithAttributes(attribute.String("conversation.id", targetId.String())))
	defer finish(span, s.metrics, "reassign_orphans", time.Now(), &err)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, apperror.Storage("begin reassign", err)
	}
	defer uow.Rollback()

	target, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: targetId})
	if err != nil {
		return 0, apperror.Storage("find conversation", err)
	}
	if target == nil {
		return 0, apperror.NotFound("conversation", targetId)
	}
	if target.Status == entity.ConversationStatusDeleted {
		return 0, apperror.Invalid("target_id", "target conversation is deleted")
	}

	moved, err = uow.FileRepository().ReassignFromSoftDeleted(ctx, targetId)
	if err != nil {
		return 0, apperror.Storage("reassign files", err)
	}
	if err := uow.Commit(); err != nil {
		return 0, apperror.Storage("commit reassign", err)
	}

	if moved > 0 {
		s.afterWrite(ctx, EventFilesReassigned, targetId, map[string]interface{}{"moved": moved})
	}
	s.logger.Info(moduleLifecycle, "Orphan files reassigned", map[string]interface{}{
		"target_id": targetId,
		"moved":     moved,
	})
	return moved, nil
}
