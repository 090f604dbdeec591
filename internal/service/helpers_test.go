package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/model"
	applogger "conversation-core/internal/pkg/logger"
	"conversation-core/internal/repository/unitofwork"
	"conversation-core/pkg/database"
	"conversation-core/pkg/metrics"
	"conversation-core/pkg/sanitize"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeFileStore struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]error
}

func (f *fakeFileStore) Delete(ctx context.Context, storagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[storagePath]; ok {
		return err
	}
	f.deleted = append(f.deleted, storagePath)
	return nil
}

type fakeVectorIndex struct {
	mu      sync.Mutex
	deleted []uuid.UUID
	err     error
}

func (f *fakeVectorIndex) DeleteNamespace(ctx context.Context, conversationId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, conversationId)
	return nil
}

type testEnv struct {
	db        *gorm.DB
	store     IConversationService
	search    ISearchService
	analytics IAnalyticsService
	files     *fakeFileStore
	vectors   *fakeVectorIndex
	logs      *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewGormDB(database.GormConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "conversations.db"),
		LogLevel: gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	core, logs := observer.New(zap.DebugLevel)
	log := applogger.NewWithZap(zap.New(core))
	m := metrics.NewMetrics()
	factory := unitofwork.NewRepositoryFactory(db)
	sanitizer := sanitize.New()

	env := &testEnv{
		db:      db,
		files:   &fakeFileStore{fail: map[string]error{}},
		vectors: &fakeVectorIndex{},
		logs:    logs,
	}
	env.analytics = NewAnalyticsService(factory, AnalyticsSettings{ActivityDays: 7, TopK: 3}, m, log)
	env.search = NewSearchService(factory, sanitizer, SearchSettings{DefaultLimit: 20, SnippetLength: 40}, m, log)
	env.store = NewConversationService(factory, sanitizer, env.files, env.vectors, nil, env.analytics, m, log)
	return env
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func userMessage(content string, at time.Time) *entity.Message {
	return &entity.Message{Role: entity.RoleUser, Content: content, Timestamp: at}
}

func newConversation(title string, tags ...string) *entity.Conversation {
	return &entity.Conversation{
		Title:     title,
		CreatedAt: baseTime,
		Metadata:  entity.ConversationMetadata{Tags: tags},
		Messages:  []*entity.Message{userMessage("hi there", baseTime)},
	}
}

func mustCreate(t *testing.T, env *testEnv, c *entity.Conversation) *entity.Conversation {
	t.Helper()
	outcome, err := env.store.Create(context.Background(), c, false)
	require.NoError(t, err)
	require.Equal(t, entity.CreateOutcomeCreated, outcome)
	return c
}

func shadowRow(t *testing.T, env *testEnv, id uuid.UUID) *model.ConversationFts {
	t.Helper()
	var row model.ConversationFts
	err := env.db.Where("conversation_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &row
}

func tagUsage(t *testing.T, env *testEnv, name string) (int, bool) {
	t.Helper()
	var tag model.Tag
	err := env.db.Where("name = ?", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false
	}
	require.NoError(t, err)
	return tag.UsageCount, true
}

func countRows(t *testing.T, env *testEnv, m interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(m).Where(where, args...).Count(&n).Error)
	return n
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }
