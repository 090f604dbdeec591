package service

import (
	"context"
	"testing"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var analyticsNow = time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)

func seedAnalytics(t *testing.T, env *testEnv) (a, b, c, d *entity.Conversation) {
	t.Helper()

	withMessages := func(title string, created time.Time, n, tokens int, provider, model string, tags ...string) *entity.Conversation {
		conv := &entity.Conversation{
			Title:     title,
			CreatedAt: created,
			Metadata:  entity.ConversationMetadata{Tags: tags},
		}
		for i := 0; i < n; i++ {
			conv.Messages = append(conv.Messages, &entity.Message{
				Role:       entity.RoleAssistant,
				Content:    "reply",
				Timestamp:  created.Add(time.Duration(i) * time.Second),
				TokenCount: tokens,
				Provider:   provider,
				Model:      model,
			})
		}
		return mustCreate(t, env, conv)
	}

	a = withMessages("A", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 3, 10, "openai", "gpt-4o", "go", "ai")
	b = withMessages("B", time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC), 1, 5, "", "", "go")
	c = withMessages("C", time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), 1, 7, "ollama", "llama3", "rust")
	d = withMessages("D", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12, 1, "", "")
	require.NoError(t, env.store.Delete(context.Background(), c.Id, true))
	return a, b, c, d
}

func TestAnalyticsEmptyStore(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.analytics.Compute(context.Background(), entity.AnalyticsOptions{Now: analyticsNow})
	require.NoError(t, err)

	assert.Zero(t, res.TotalConversations)
	assert.Zero(t, res.TotalMessages)
	assert.Zero(t, res.AvgMessagesPerConv)
	assert.Zero(t, res.AvgTokensPerConv)
	assert.Len(t, res.MessageCountHistogram, len(entity.HistogramBuckets))
	for _, bucket := range entity.HistogramBuckets {
		assert.Zero(t, res.MessageCountHistogram[bucket], bucket)
	}
	require.Len(t, res.DailyActivity, 7)
	assert.Equal(t, "2024-02-26", res.DailyActivity[0].Date)
	assert.Equal(t, "2024-03-03", res.DailyActivity[6].Date)
	assert.NotNil(t, res.TopTags)
	assert.Empty(t, res.TopConversations)
	assert.Empty(t, res.ModelUsage)
}

func TestAnalyticsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	a, b, _, d := seedAnalytics(t, env)

	res, err := env.analytics.Compute(context.Background(), entity.AnalyticsOptions{Now: analyticsNow})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.TotalConversations)
	assert.Equal(t, map[entity.ConversationStatus]int64{entity.ConversationStatusActive: 3}, res.CountsByStatus)
	assert.Equal(t, int64(16), res.TotalMessages)
	assert.Equal(t, int64(47), res.TotalTokens)
	assert.InDelta(t, 16.0/3.0, res.AvgMessagesPerConv, 1e-9)
	assert.InDelta(t, 47.0/3.0, res.AvgTokensPerConv, 1e-9)

	assert.Equal(t, int64(2), res.MessageCountHistogram["1-5"])
	assert.Equal(t, int64(1), res.MessageCountHistogram["11-20"])
	assert.Equal(t, int64(0), res.MessageCountHistogram["0"])

	daily := map[string]int64{}
	for _, day := range res.DailyActivity {
		daily[day.Date] = day.Count
	}
	assert.Equal(t, int64(1), daily["2024-03-01"])
	assert.Equal(t, int64(0), daily["2024-03-02"])
	assert.Equal(t, int64(1), daily["2024-03-03"])

	assert.Equal(t, []entity.TagUsage{
		{Name: "go", UsageCount: 2},
		{Name: "ai", UsageCount: 1},
		{Name: "rust", UsageCount: 1},
	}, res.TopTags)

	assert.Equal(t, []entity.ConversationRank{
		{ConversationId: d.Id, Title: "D", MessageCount: 12},
		{ConversationId: a.Id, Title: "A", MessageCount: 3},
		{ConversationId: b.Id, Title: "B", MessageCount: 1},
	}, res.TopConversations)

	assert.Equal(t, []entity.ModelUsage{
		{Provider: "openai", Model: "gpt-4o", MessageCount: 3, TotalTokens: 30},
	}, res.ModelUsage)
	assert.True(t, res.ComputedAt.Equal(analyticsNow))
}

func TestAnalyticsIncludeDeleted(t *testing.T) {
	env := newTestEnv(t)
	seedAnalytics(t, env)

	res, err := env.analytics.Compute(context.Background(), entity.AnalyticsOptions{Now: analyticsNow, IncludeDeleted: true, TopK: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.TotalConversations)
	assert.Equal(t, int64(1), res.CountsByStatus[entity.ConversationStatusDeleted])
	assert.Equal(t, int64(54), res.TotalTokens)
	require.Len(t, res.TopConversations, 1)
	assert.Equal(t, "D", res.TopConversations[0].Title)
	require.Len(t, res.TopTags, 1)
	assert.Equal(t, "go", res.TopTags[0].Name)
	require.Len(t, res.ModelUsage, 2)
	assert.Equal(t, "llama3", res.ModelUsage[1].Model)

	for _, day := range res.DailyActivity {
		if day.Date == "2024-03-02" {
			assert.Equal(t, int64(1), day.Count)
		}
	}
}

func TestAnalyticsCacheIsFlushedByWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, newConversation("first"))

	first, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalMessages)

	// Writes that bypass the service are not seen until the cache is flushed.
	require.NoError(t, env.db.Exec("UPDATE conversations SET message_count = message_count + 1").Error)
	second, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)

	mustCreate(t, env, newConversation("second"))

	third, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.TotalConversations)
	assert.Equal(t, int64(3), third.TotalMessages)
}

func TestAnalyticsInvalidateDuringComputeIsNotCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, newConversation("only"))

	fired := false
	require.NoError(t, env.db.Callback().Query().After("gorm:query").Register("test:invalidate_mid_compute", func(*gorm.DB) {
		if !fired {
			fired = true
			env.analytics.Invalidate()
		}
	}))

	first, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, int64(1), first.TotalMessages)
	require.NoError(t, env.db.Callback().Query().Remove("test:invalidate_mid_compute"))

	require.NoError(t, env.db.Exec("UPDATE conversations SET message_count = message_count + 1").Error)

	second, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.TotalMessages)
}

func TestAnalyticsSnapshotsAreIndependentCopies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mustCreate(t, env, newConversation("tagged", "go"))

	first, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	require.Len(t, first.TopTags, 1)

	first.TopTags[0].Name = "mutated"
	first.TopTags = append(first.TopTags, entity.TagUsage{Name: "extra"})
	first.CountsByStatus[entity.ConversationStatusActive] = 99
	first.MessageCountHistogram["0"] = 99
	first.DailyActivity = nil

	second, err := env.analytics.Compute(ctx, entity.AnalyticsOptions{})
	require.NoError(t, err)
	assert.Equal(t, []entity.TagUsage{{Name: "go", UsageCount: 1}}, second.TopTags)
	assert.Equal(t, int64(1), second.CountsByStatus[entity.ConversationStatusActive])
	assert.Equal(t, int64(0), second.MessageCountHistogram["0"])
	assert.Len(t, second.DailyActivity, 7)
}

func TestAnalyticsRejectsNegativeOptions(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.analytics.Compute(context.Background(), entity.AnalyticsOptions{ActivityDays: -1})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.analytics.Compute(context.Background(), entity.AnalyticsOptions{TopK: -2})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestDailyWindow(t *testing.T) {
	window := dailyWindow(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), 3)
	require.Len(t, window, 3)
	assert.Equal(t, "2024-02-28", window[0].Date)
	assert.Equal(t, "2024-02-29", window[1].Date)
	assert.Equal(t, "2024-03-01", window[2].Date)
	for _, day := range window {
		assert.Zero(t, day.Count)
	}
	assert.Empty(t, dailyWindow(time.Now(), 0))
}
