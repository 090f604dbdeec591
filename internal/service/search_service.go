package service

import (
	"context"
	"strings"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/model"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/logger"
	"conversation-core/internal/pkg/validation"
	"conversation-core/internal/repository/specification"
	"conversation-core/internal/repository/unitofwork"
	"conversation-core/pkg/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const moduleSearch = "SEARCH"

type ISearchService interface {
	Search(ctx context.Context, query entity.SearchQuery) (*entity.SearchResults, error)
}

type SearchSettings struct {
	DefaultLimit  int
	SnippetLength int
}

type searchService struct {
	uowFactory unitofwork.RepositoryFactory
	sanitizer  Sanitizer
	settings   SearchSettings
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewSearchService(
	uowFactory unitofwork.RepositoryFactory,
	sanitizer Sanitizer,
	settings SearchSettings,
	m *metrics.Metrics,
	log logger.ILogger,
) ISearchService {
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = 20
	}
	if settings.SnippetLength <= 0 {
		settings.SnippetLength = 200
	}
	return &searchService{
		uowFactory: uowFactory,
		sanitizer:  sanitizer,
		settings:   settings,
		metrics:    m,
		logger:     log,
	}
}

func (s *searchService) Search(ctx context.Context, query entity.SearchQuery) (results *entity.SearchResults, err error) {
	start := time.Now()
	ctx, span := tracer().Start(ctx, "SearchService.Search")
	defer finish(span, s.metrics, "search", start, &err)

	if err := validation.Struct(query); err != nil {
		return nil, err
	}
	if query.Scope == "" {
		query.Scope = entity.SearchScopeAll
	}
	if query.Limit == 0 {
		query.Limit = s.settings.DefaultLimit
	}
	term := s.sanitizer.SanitizeText(query.Text)
	span.SetAttributes(
		attribute.String("search.scope", string(query.Scope)),
		attribute.Int("search.limit", query.Limit),
		attribute.Int("search.offset", query.Offset),
	)

	results = &entity.SearchResults{
		Results: []*entity.SearchResult{},
		Offset:  query.Offset,
		Limit:   query.Limit,
	}
	if unsatisfiable(query) {
		results.Elapsed = time.Since(start)
		return results, nil
	}

	filters := s.filters(query, term)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BeginReadOnly(ctx); err != nil {
		return nil, apperror.Storage("begin search", err)
	}
	defer uow.Rollback()

	total, err := uow.ConversationRepository().Count(ctx, filters...)
	if err != nil {
		return nil, apperror.Storage("count search results", err)
	}
	results.TotalCount = total

	if total > 0 && int64(query.Offset) < total {
		page := append(filters,
			specification.ConversationOrder{Sort: query.Sort},
			specification.Pagination{Limit: query.Limit, Offset: query.Offset},
		)
		conversations, err := uow.ConversationRepository().FindAll(ctx, page...)
		if err != nil {
			return nil, apperror.Storage("find search results", err)
		}

		ids := make([]uuid.UUID, len(conversations))
		for i, c := range conversations {
			ids[i] = c.Id
		}
		shadows, err := uow.FtsRepository().FindByConversationIds(ctx, ids)
		if err != nil {
			return nil, apperror.Storage("find search rows", err)
		}

		for _, c := range conversations {
			results.Results = append(results.Results, s.buildResult(c, shadows[c.Id], term, query.Scope))
		}
	}

	results.Elapsed = time.Since(start)
	s.metrics.ObserveSearch(total)
	s.logger.Debug(moduleSearch, "Search executed", map[string]interface{}{
		"scope":      query.Scope,
		"total":      total,
		"returned":   len(results.Results),
		"elapsed_ms": results.Elapsed.Milliseconds(),
	})
	return results, nil
}

// unsatisfiable reports malformed ranges, which match nothing rather than fail.
func unsatisfiable(q entity.SearchQuery) bool {
	if q.Created.Empty() || q.Updated.Empty() {
		return true
	}
	return q.MinMessageCount != nil && q.MaxMessageCount != nil && *q.MinMessageCount > *q.MaxMessageCount
}

func (s *searchService) filters(q entity.SearchQuery, term string) []specification.Specification {
	specs := []specification.Specification{
		specification.TextMatch{Text: term, Scope: q.Scope},
	}
	if q.Status != "" {
		specs = append(specs, specification.ByStatus{Status: q.Status})
	} else {
		specs = append(specs, specification.ExcludeDeleted{})
	}
	if category := s.sanitizer.SanitizeText(q.Category); category != "" {
		specs = append(specs, specification.ByCategory{Category: category})
	}
	specs = append(specs,
		specification.CreatedWithin{Range: q.Created},
		specification.UpdatedWithin{Range: q.Updated},
		specification.MessageCountBetween{Min: q.MinMessageCount, Max: q.MaxMessageCount},
		specification.HasAllTags{Tags: entity.NormalizeTags(q.Tags)},
	)
	return specs
}

func (s *searchService) buildResult(c *entity.Conversation, shadow *model.ConversationFts, term string, scope entity.SearchScope) *entity.SearchResult {
	content := ""
	if shadow != nil {
		content = shadow.Content
	}

	result := &entity.SearchResult{
		ConversationId: c.Id,
		Title:          c.Title,
		Snippet:        snippet(content, term, s.settings.SnippetLength),
		MatchedFields:  []string{},
	}
	if term == "" {
		return result
	}

	if scope != entity.SearchScopeContent {
		if n := countFold(c.Title, term); n > 0 {
			result.MatchCount += n
			result.MatchedFields = append(result.MatchedFields, "title")
		}
	}
	if scope != entity.SearchScopeTitle {
		if n := countFold(content, term); n > 0 {
			result.MatchCount += n
			result.MatchedFields = append(result.MatchedFields, "content")
		}
	}
	return result
}

// snippet returns up to size runes of content centred on the first
// case-insensitive occurrence of term, or the leading runes when there is none.
// Ellipses mark truncation.
func snippet(content, term string, size int) string {
	runes := []rune(content)
	if len(runes) <= size {
		return content
	}

	start := 0
	if term != "" {
		if idx := indexFold(runes, []rune(term)); idx >= 0 {
			start = idx + len([]rune(term))/2 - size/2
			if start < 0 {
				start = 0
			}
			if start > len(runes)-size {
				start = len(runes) - size
			}
		}
	}
	end := start + size

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}

// indexFold is a rune-wise case-insensitive search returning a rune offset.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if !equalFoldRune(haystack[i+j], r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// countFold counts non-overlapping case-insensitive occurrences.
func countFold(s, term string) int {
	haystack := []rune(s)
	needle := []rune(term)
	count := 0
	for len(needle) > 0 {
		idx := indexFold(haystack, needle)
		if idx < 0 {
			break
		}
		count++
		haystack = haystack[idx+len(needle):]
	}
	return count
}

func equalFoldRune(a, b rune) bool {
	return a == b || strings.EqualFold(string(a), string(b))
}
