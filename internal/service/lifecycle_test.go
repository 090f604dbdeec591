package service

import (
	"context"
	"errors"
	"testing"

	"conversation-core/internal/entity"
	"conversation-core/internal/model"
	"conversation-core/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func attach(t *testing.T, env *testEnv, conversationId uuid.UUID, path string) {
	t.Helper()
	require.NoError(t, env.store.AttachFile(context.Background(), &entity.FileInfo{
		ConversationId: conversationId,
		FileName:       "notes.txt",
		StoragePath:    path,
		SizeBytes:      42,
	}))
}

func TestSoftDeleteThenRestoreRoundTrips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := newConversation("keep me", "go", "sql")
	c.Status = entity.ConversationStatusPinned
	c.Metadata.Category = "work"
	mustCreate(t, env, c)

	before, err := env.store.Get(ctx, c.Id, true)
	require.NoError(t, err)

	require.NoError(t, env.store.Delete(ctx, c.Id, true))

	deleted, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)
	require.NotNil(t, deleted, "soft-deleted conversations stay readable")
	assert.Equal(t, entity.ConversationStatusDeleted, deleted.Status)
	assert.NotNil(t, deleted.DeletedAt)

	list, err := env.store.List(ctx, entity.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, env.store.Restore(ctx, c.Id))

	after, err := env.store.Get(ctx, c.Id, true)
	require.NoError(t, err)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, entity.ConversationStatusPinned, after.Status)
	assert.Equal(t, before.Metadata.Tags, after.Metadata.Tags)
	assert.Equal(t, before.Metadata.Category, after.Metadata.Category)
	assert.Equal(t, before.MessageCount, after.MessageCount)
	assert.Equal(t, before.Messages, after.Messages)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.Nil(t, after.DeletedAt)

	n, _ := tagUsage(t, env, "go")
	assert.Equal(t, 1, n)
}

func TestSoftDeleteAndRestoreAreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := mustCreate(t, env, newConversation("twice"))

	require.NoError(t, env.store.Restore(ctx, c.Id), "restoring a live conversation is a no-op")

	require.NoError(t, env.store.Delete(ctx, c.Id, true))
	first, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)

	require.NoError(t, env.store.Delete(ctx, c.Id, true))
	second, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, env.store.Restore(ctx, c.Id))
	require.NoError(t, env.store.Restore(ctx, c.Id))
	restored, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationStatusActive, restored.Status)
}

func TestLifecycleMissingConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	missing := uuid.New()

	assert.ErrorIs(t, env.store.Delete(ctx, missing, true), apperror.ErrNotFound)
	assert.ErrorIs(t, env.store.Delete(ctx, missing, false), apperror.ErrNotFound)
	assert.ErrorIs(t, env.store.Restore(ctx, missing), apperror.ErrNotFound)
}

func TestHardDeleteRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := mustCreate(t, env, newConversation("purge me", "go"))
	other := mustCreate(t, env, newConversation("bystander", "go"))
	attach(t, env, c.Id, "/files/a.txt")
	attach(t, env, c.Id, "/files/b.txt")
	attach(t, env, other.Id, "/files/c.txt")
	require.NoError(t, env.store.SaveSummary(ctx, &entity.ConversationSummary{ConversationId: c.Id, Summary: "short"}))

	require.NoError(t, env.store.Delete(ctx, c.Id, false))

	got, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Zero(t, countRows(t, env, &model.Message{}, "conversation_id = ?", c.Id))
	assert.Zero(t, countRows(t, env, &model.ConversationTag{}, "conversation_id = ?", c.Id))
	assert.Zero(t, countRows(t, env, &model.ConversationSummary{}, "conversation_id = ?", c.Id))
	assert.Zero(t, countRows(t, env, &model.FileRecord{}, "conversation_id = ?", c.Id))
	assert.Nil(t, shadowRow(t, env, c.Id))

	n, ok := tagUsage(t, env, "go")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	assert.ElementsMatch(t, []string{"/files/a.txt", "/files/b.txt"}, env.files.deleted)
	assert.Equal(t, []uuid.UUID{c.Id}, env.vectors.deleted)
	assert.Zero(t, env.logs.FilterLevelExact(zapcore.WarnLevel).Len())

	survivor, err := env.store.Get(ctx, other.Id, true)
	require.NoError(t, err)
	require.NotNil(t, survivor)
	assert.Len(t, survivor.Messages, 1)
	assert.Equal(t, int64(1), countRows(t, env, &model.FileRecord{}, "conversation_id = ?", other.Id))
}

func TestHardDeleteReportsPartialCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := mustCreate(t, env, newConversation("flaky"))
	attach(t, env, c.Id, "/files/locked.bin")
	attach(t, env, c.Id, "/files/fine.bin")
	env.files.fail["/files/locked.bin"] = errors.New("permission denied")
	env.vectors.err = errors.New("index offline")

	require.NoError(t, env.store.Delete(ctx, c.Id, false), "cleanup failures never undo the delete")

	got, err := env.store.Get(ctx, c.Id, false)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{"/files/fine.bin"}, env.files.deleted, "later steps still run")

	warnings := env.logs.FilterMessage("Partial cleanup after hard delete").AllUntimed()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	details, ok := warnings[0].ContextMap()["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2, details["failures"])
	assert.Contains(t, details["error"], "permission denied")
	assert.Contains(t, details["error"], "index offline")
}

func TestReassignOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	gone := mustCreate(t, env, newConversation("gone"))
	live := mustCreate(t, env, newConversation("live"))
	target := mustCreate(t, env, newConversation("target"))
	attach(t, env, gone.Id, "/files/1")
	attach(t, env, gone.Id, "/files/2")
	attach(t, env, live.Id, "/files/3")
	require.NoError(t, env.store.Delete(ctx, gone.Id, true))

	moved, err := env.store.ReassignOrphans(ctx, target.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	counts, err := env.store.FileCountsFor(ctx, []uuid.UUID{gone.Id, live.Id, target.Id})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{gone.Id: 0, live.Id: 1, target.Id: 2}, counts)

	moved, err = env.store.ReassignOrphans(ctx, target.Id)
	require.NoError(t, err)
	assert.Zero(t, moved)

	_, err = env.store.ReassignOrphans(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.store.ReassignOrphans(ctx, gone.Id)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
