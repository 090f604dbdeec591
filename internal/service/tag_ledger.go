package service

import (
	"context"

	"conversation-core/internal/entity"
	"conversation-core/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// tagLedger keeps tags.usage_count equal to the number of linked
// conversations. It only runs inside the caller's transaction.
type tagLedger struct{}

// setTags links the conversation to exactly names, adjusting counters by the diff.
func (tagLedger) setTags(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID, names []string) error {
	repo := uow.TagRepository()

	current, err := repo.LinkedNames(ctx, conversationId)
	if err != nil {
		return err
	}
	added, removed := diffTags(current, entity.NormalizeTags(names))

	if len(added) > 0 {
		if err := repo.EnsureExists(ctx, added); err != nil {
			return err
		}
		if err := repo.CreateLinks(ctx, conversationId, added); err != nil {
			return err
		}
		if err := repo.AdjustUsage(ctx, added, 1); err != nil {
			return err
		}
	}

	if len(removed) > 0 {
		if err := repo.DeleteLinks(ctx, conversationId, removed); err != nil {
			return err
		}
		if err := repo.AdjustUsage(ctx, removed, -1); err != nil {
			return err
		}
	}
	return nil
}

// release drops every link of the conversation. Tag rows stay, possibly at zero.
func (l tagLedger) release(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID) error {
	return l.setTags(ctx, uow, conversationId, nil)
}

func diffTags(current, desired []string) (added, removed []string) {
	have := make(map[string]struct{}, len(current))
	for _, name := range current {
		have[name] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		want[name] = struct{}{}
		if _, ok := have[name]; !ok {
			added = append(added, name)
		}
	}
	for _, name := range current {
		if _, ok := want[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed
}
