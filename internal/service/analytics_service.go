package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/logger"
	"conversation-core/internal/pkg/validation"
	"conversation-core/internal/repository/specification"
	"conversation-core/internal/repository/unitofwork"
	"conversation-core/pkg/metrics"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const moduleAnalytics = "ANALYTICS"

type IAnalyticsService interface {
	Compute(ctx context.Context, opts entity.AnalyticsOptions) (*entity.Analytics, error)
	Invalidate()
}

type AnalyticsSettings struct {
	CacheTTL     time.Duration
	ActivityDays int
	TopK         int
}

// analyticsService computes a point-in-time snapshot. Snapshots are memoised
// until the next committed write flushes the cache. A snapshot is only stored
// when no Invalidate happened while it was being computed.
type analyticsService struct {
	uowFactory unitofwork.RepositoryFactory
	settings   AnalyticsSettings
	cache      *cache.Cache
	mu         sync.Mutex
	generation uint64
	metrics    *metrics.Metrics
	logger     logger.ILogger
	now        func() time.Time
}

func NewAnalyticsService(
	uowFactory unitofwork.RepositoryFactory,
	settings AnalyticsSettings,
	m *metrics.Metrics,
	log logger.ILogger,
) IAnalyticsService {
	if settings.ActivityDays <= 0 {
		settings.ActivityDays = 30
	}
	if settings.TopK <= 0 {
		settings.TopK = 10
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = 30 * time.Second
	}
	return &analyticsService{
		uowFactory: uowFactory,
		settings:   settings,
		cache:      cache.New(settings.CacheTTL, 2*settings.CacheTTL),
		metrics:    m,
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *analyticsService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.Flush()
}

func (s *analyticsService) Compute(ctx context.Context, opts entity.AnalyticsOptions) (result *entity.Analytics, err error) {
	ctx, span := tracer().Start(ctx, "AnalyticsService.Compute")
	defer finish(span, s.metrics, "analytics", time.Now(), &err)

	if err := validation.Struct(opts); err != nil {
		return nil, err
	}
	if opts.ActivityDays == 0 {
		opts.ActivityDays = s.settings.ActivityDays
	}
	if opts.TopK == 0 {
		opts.TopK = s.settings.TopK
	}
	explicitNow := !opts.Now.IsZero()
	if !explicitNow {
		opts.Now = s.now()
	}
	opts.Now = opts.Now.UTC()

	key := fmt.Sprintf("%t|%d|%d|%s", opts.IncludeDeleted, opts.ActivityDays, opts.TopK, opts.Now.Format("2006-01-02"))
	if !explicitNow {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(*entity.Analytics).Clone(), nil
		}
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	result, err = s.compute(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !explicitNow {
		s.store(key, generation, result)
	}

	s.logger.Debug(moduleAnalytics, "Analytics computed", map[string]interface{}{
		"conversations":   result.TotalConversations,
		"include_deleted": opts.IncludeDeleted,
	})
	return result, nil
}

// store caches a copy of result unless an Invalidate ran after generation was read.
func (s *analyticsService) store(key string, generation uint64, result *entity.Analytics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	s.cache.SetDefault(key, result.Clone())
}

func (s *analyticsService) compute(ctx context.Context, opts entity.AnalyticsOptions) (*entity.Analytics, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BeginReadOnly(ctx); err != nil {
		return nil, apperror.Storage("begin analytics", err)
	}
	defer uow.Rollback()

	specs := []specification.Specification{specification.ConversationOrder{Sort: entity.SortCreatedAsc}}
	if !opts.IncludeDeleted {
		specs = append(specs, specification.ExcludeDeleted{})
	}
	conversations, err := uow.ConversationRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Storage("scan conversations", err)
	}

	result := &entity.Analytics{
		CountsByStatus:        make(map[entity.ConversationStatus]int64),
		MessageCountHistogram: make(map[string]int64, len(entity.HistogramBuckets)),
		DailyActivity:         dailyWindow(opts.Now, opts.ActivityDays),
		TopTags:               []entity.TagUsage{},
		TopConversations:      []entity.ConversationRank{},
		ModelUsage:            []entity.ModelUsage{},
		ComputedAt:            opts.Now,
	}
	for _, b := range entity.HistogramBuckets {
		result.MessageCountHistogram[b] = 0
	}

	dayIndex := make(map[string]int, len(result.DailyActivity))
	for i, d := range result.DailyActivity {
		dayIndex[d.Date] = i
	}

	ids := make([]uuid.UUID, len(conversations))
	for i, c := range conversations {
		ids[i] = c.Id
		result.TotalConversations++
		result.CountsByStatus[c.Status]++
		result.TotalMessages += int64(c.MessageCount)
		result.MessageCountHistogram[entity.HistogramBucket(c.MessageCount)]++
		if d, ok := dayIndex[c.CreatedAt.UTC().Format("2006-01-02")]; ok {
			result.DailyActivity[d].Count++
		}
	}

	if len(ids) > 0 {
		totals, err := uow.MessageRepository().TokenTotals(ctx, ids)
		if err != nil {
			return nil, apperror.Storage("sum tokens", err)
		}
		for _, t := range totals {
			result.TotalTokens += t
		}

		usage, err := uow.MessageRepository().UsageByModel(ctx, ids)
		if err != nil {
			return nil, apperror.Storage("model usage", err)
		}
		result.ModelUsage = usage
	}

	if result.TotalConversations > 0 {
		result.AvgMessagesPerConv = float64(result.TotalMessages) / float64(result.TotalConversations)
		result.AvgTokensPerConv = float64(result.TotalTokens) / float64(result.TotalConversations)
	}

	tags, err := uow.TagRepository().FindAll(ctx,
		specification.MinUsage{Min: 1},
		specification.TagUsageOrder{},
		specification.Pagination{Limit: opts.TopK},
	)
	if err != nil {
		return nil, apperror.Storage("top tags", err)
	}
	result.TopTags = tags

	result.TopConversations = topConversations(conversations, opts.TopK)
	return result, nil
}

// dailyWindow returns the last days calendar days ending today, oldest first, all at zero.
func dailyWindow(now time.Time, days int) []entity.DailyActivity {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := make([]entity.DailyActivity, days)
	for i := 0; i < days; i++ {
		window[i] = entity.DailyActivity{
			Date: today.AddDate(0, 0, i-days+1).Format("2006-01-02"),
		}
	}
	return window
}

func topConversations(conversations []*entity.Conversation, k int) []entity.ConversationRank {
	ranked := make([]*entity.Conversation, len(conversations))
	copy(ranked, conversations)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MessageCount != ranked[j].MessageCount {
			return ranked[i].MessageCount > ranked[j].MessageCount
		}
		return ranked[i].Id.String() < ranked[j].Id.String()
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]entity.ConversationRank, len(ranked))
	for i, c := range ranked {
		out[i] = entity.ConversationRank{
			ConversationId: c.Id,
			Title:          c.Title,
			MessageCount:   c.MessageCount,
		}
	}
	return out
}
