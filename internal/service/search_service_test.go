package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	env *testEnv
	ids map[string]uuid.UUID
}

func seedSearch(t *testing.T) *searchFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &searchFixture{env: env, ids: map[string]uuid.UUID{}}

	add := func(title, category string, offset time.Duration, tags []string, contents ...string) {
		c := &entity.Conversation{
			Title:     title,
			CreatedAt: baseTime.Add(offset),
			Metadata:  entity.ConversationMetadata{Tags: tags, Category: category},
		}
		for i, content := range contents {
			c.Messages = append(c.Messages, userMessage(content, baseTime.Add(offset+time.Duration(i)*time.Minute)))
		}
		mustCreate(t, env, c)
		f.ids[title] = c.Id
	}

	add("Python Basics", "learning", 0, []string{"python", "beginner"}, "learn about loops", "and lists")
	add("Dinner plans", "home", time.Hour, []string{"food"}, "a python recipe would be odd", "pasta it is", "with garlic")
	add("100% done_deal", "work", 2*time.Hour, []string{"python"}, "closed")
	add("Old python notes", "learning", 3*time.Hour, []string{"python"}, "deprecated stuff")
	require.NoError(t, env.store.Delete(context.Background(), f.ids["Old python notes"], true))
	return f
}

func (f *searchFixture) search(t *testing.T, q entity.SearchQuery) *entity.SearchResults {
	t.Helper()
	res, err := f.env.search.Search(context.Background(), q)
	require.NoError(t, err)
	return res
}

func resultTitles(res *entity.SearchResults) []string {
	out := make([]string, len(res.Results))
	for i, r := range res.Results {
		out[i] = r.Title
	}
	return out
}

func TestSearchScopes(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{Text: "python", Scope: entity.SearchScopeTitle, Sort: entity.SortTitleAsc})
	assert.Equal(t, []string{"Python Basics"}, resultTitles(res))
	assert.Equal(t, []string{"title"}, res.Results[0].MatchedFields)
	assert.Equal(t, 1, res.Results[0].MatchCount)

	res = f.search(t, entity.SearchQuery{Text: "python", Scope: entity.SearchScopeContent, Sort: entity.SortTitleAsc})
	assert.Equal(t, []string{"Dinner plans"}, resultTitles(res))
	assert.Equal(t, []string{"content"}, res.Results[0].MatchedFields)
	assert.Contains(t, res.Results[0].Snippet, "python recipe")

	res = f.search(t, entity.SearchQuery{Text: "python", Sort: entity.SortTitleAsc})
	assert.Equal(t, []string{"Dinner plans", "Python Basics"}, resultTitles(res))
	assert.Equal(t, int64(2), res.TotalCount)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	f := seedSearch(t)

	lower := f.search(t, entity.SearchQuery{Text: "python", Sort: entity.SortTitleAsc})
	upper := f.search(t, entity.SearchQuery{Text: "PYTHON", Sort: entity.SortTitleAsc})
	mixed := f.search(t, entity.SearchQuery{Text: "PyThOn", Sort: entity.SortTitleAsc})

	assert.Equal(t, resultTitles(lower), resultTitles(upper))
	assert.Equal(t, resultTitles(lower), resultTitles(mixed))
}

func TestSearchFoldsNonASCII(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c := newConversation("Über Straße")
	c.Messages = append(c.Messages, userMessage("ÉCOLE notes", baseTime.Add(time.Minute)))
	mustCreate(t, env, c)
	mustCreate(t, env, newConversation("plain ascii"))

	res, err := env.search.Search(ctx, entity.SearchQuery{Text: "über", Scope: entity.SearchScopeTitle})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
	require.Len(t, res.Results, 1)
	assert.Equal(t, c.Id, res.Results[0].ConversationId)

	res, err = env.search.Search(ctx, entity.SearchQuery{Text: "école", Scope: entity.SearchScopeContent})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
	require.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].Snippet, "ÉCOLE")

	// Appended messages are folded too.
	require.NoError(t, env.store.AppendMessage(ctx, &entity.Message{
		ConversationId: c.Id,
		Role:           entity.RoleAssistant,
		Content:        "ÇA VA",
		Timestamp:      baseTime.Add(time.Hour),
	}))
	res, err = env.search.Search(ctx, entity.SearchQuery{Text: "ça va"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{Text: "%"})
	assert.Equal(t, []string{"100% done_deal"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Text: "_"})
	assert.Equal(t, []string{"100% done_deal"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Text: "done%deal"})
	assert.Empty(t, res.Results)
}

func TestSearchFilters(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{Tags: []string{"python"}, Sort: entity.SortTitleAsc})
	assert.Equal(t, []string{"100% done_deal", "Python Basics"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Tags: []string{"Python", "beginner"}})
	assert.Equal(t, []string{"Python Basics"}, resultTitles(res), "every tag must match")

	res = f.search(t, entity.SearchQuery{Category: "home"})
	assert.Equal(t, []string{"Dinner plans"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Status: entity.ConversationStatusDeleted})
	assert.Equal(t, []string{"Old python notes"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{
		Created: entity.TimeRange{After: timePtr(baseTime.Add(30 * time.Minute)), Before: timePtr(baseTime.Add(150 * time.Minute))},
		Sort:    entity.SortCreatedAsc,
	})
	assert.Equal(t, []string{"Dinner plans", "100% done_deal"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{MinMessageCount: intPtr(2), MaxMessageCount: intPtr(2)})
	assert.Equal(t, []string{"Python Basics"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Text: "python", Tags: []string{"food"}})
	assert.Equal(t, []string{"Dinner plans"}, resultTitles(res), "text and filters combine")
}

func TestSearchExcludesDeletedByDefault(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{Text: "notes"})
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalCount)
}

func TestSearchMalformedRangesMatchNothing(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{
		Created: entity.TimeRange{After: timePtr(baseTime.Add(time.Hour)), Before: timePtr(baseTime)},
	})
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalCount)

	res = f.search(t, entity.SearchQuery{MinMessageCount: intPtr(5), MaxMessageCount: intPtr(1)})
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
}

func TestSearchPaginationAndTotalCount(t *testing.T) {
	f := seedSearch(t)

	full := f.search(t, entity.SearchQuery{Sort: entity.SortCreatedAsc})
	require.Len(t, full.Results, 3)
	assert.Equal(t, int64(3), full.TotalCount)

	page := f.search(t, entity.SearchQuery{Sort: entity.SortCreatedAsc, Limit: 2, Offset: 1})
	assert.Equal(t, int64(3), page.TotalCount, "total ignores the page window")
	assert.Equal(t, resultTitles(full)[1:], resultTitles(page))
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)

	past := f.search(t, entity.SearchQuery{Sort: entity.SortCreatedAsc, Offset: 10})
	assert.Empty(t, past.Results)
	assert.Equal(t, int64(3), past.TotalCount)

	defaults := f.search(t, entity.SearchQuery{})
	assert.Equal(t, 20, defaults.Limit)
}

func TestSearchSorts(t *testing.T) {
	f := seedSearch(t)

	res := f.search(t, entity.SearchQuery{Sort: entity.SortMessageCountDesc})
	assert.Equal(t, []string{"Dinner plans", "Python Basics", "100% done_deal"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{Sort: entity.SortTitleDesc})
	assert.Equal(t, []string{"Python Basics", "Dinner plans", "100% done_deal"}, resultTitles(res))

	res = f.search(t, entity.SearchQuery{})
	assert.Equal(t, []string{"100% done_deal", "Dinner plans", "Python Basics"}, resultTitles(res), "newest update first by default")
}

func TestSearchIsDeterministicOnTies(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for i := 0; i < 5; i++ {
		c := mustCreate(t, env, newConversation("same title"))
		ids = append(ids, c.Id.String())
	}
	sort.Strings(ids)

	for run := 0; run < 3; run++ {
		res, err := env.search.Search(context.Background(), entity.SearchQuery{Text: "same", Sort: entity.SortTitleAsc})
		require.NoError(t, err)
		got := make([]string, len(res.Results))
		for i, r := range res.Results {
			got[i] = r.ConversationId.String()
		}
		assert.Equal(t, ids, got)
	}
}

func TestSearchRejectsInvalidQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.search.Search(ctx, entity.SearchQuery{Limit: -1})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.search.Search(ctx, entity.SearchQuery{Offset: -3})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.search.Search(ctx, entity.SearchQuery{Scope: "everywhere"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSearchMatchCount(t *testing.T) {
	env := newTestEnv(t)
	c := newConversation("Echo echo")
	c.Messages[0].Content = "echo ECHO and one more echo"
	mustCreate(t, env, c)

	res, err := env.search.Search(context.Background(), entity.SearchQuery{Text: "echo"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 5, res.Results[0].MatchCount)
	assert.Equal(t, []string{"title", "content"}, res.Results[0].MatchedFields)
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 30) + "NEEDLE" + strings.Repeat("b", 30)

	tests := []struct {
		name    string
		content string
		term    string
		size    int
		want    string
	}{
		{name: "short content is returned whole", content: "tiny", term: "x", size: 10, want: "tiny"},
		{name: "no term keeps the head", content: long, term: "", size: 10, want: "aaaaaaaaaa..."},
		{name: "no match keeps the head", content: long, term: "zzz", size: 10, want: "aaaaaaaaaa..."},
		{name: "centred on the match", content: long, term: "needle", size: 10, want: "...aaNEEDLEbb..."},
		{name: "match at the start", content: "NEEDLE" + strings.Repeat("b", 20), term: "needle", size: 8, want: "NEEDLEbb..."},
		{name: "match at the end", content: strings.Repeat("a", 20) + "NEEDLE", term: "needle", size: 8, want: "...aaNEEDLE"},
		{name: "multibyte runes", content: "ééééééééééüberéééééééééé", term: "ÜBER", size: 6, want: "...éüberé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.content, tt.term, tt.size))
		})
	}
}

func TestCountFold(t *testing.T) {
	assert.Equal(t, 0, countFold("anything", ""))
	assert.Equal(t, 0, countFold("", "x"))
	assert.Equal(t, 3, countFold("Go go GO", "go"))
	assert.Equal(t, 2, countFold("aaaa", "aa"), "occurrences do not overlap")
	assert.Equal(t, 2, countFold("ÉCOLE école", "école"))
}
