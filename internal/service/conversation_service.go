package service

import (
	"context"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/logger"
	"conversation-core/internal/pkg/validation"
	"conversation-core/internal/repository/specification"
	"conversation-core/internal/repository/unitofwork"
	"conversation-core/pkg/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const moduleConversation = "CONVERSATION"

type IConversationService interface {
	Create(ctx context.Context, conversation *entity.Conversation, force bool) (entity.CreateOutcome, error)
	Get(ctx context.Context, id uuid.UUID, includeMessages bool) (*entity.Conversation, error)
	Update(ctx context.Context, conversation *entity.Conversation) error
	AppendMessage(ctx context.Context, message *entity.Message) error
	GetMessages(ctx context.Context, conversationId uuid.UUID, limit, offset int) ([]*entity.Message, error)
	List(ctx context.Context, opts entity.ListOptions) ([]*entity.Conversation, error)

	Delete(ctx context.Context, id uuid.UUID, soft bool) error
	Restore(ctx context.Context, id uuid.UUID) error
	ReassignOrphans(ctx context.Context, targetId uuid.UUID) (int64, error)

	SaveSummary(ctx context.Context, summary *entity.ConversationSummary) error
	GetSummary(ctx context.Context, conversationId uuid.UUID) (*entity.ConversationSummary, error)

	AllTags(ctx context.Context, minUsage int) ([]entity.TagUsage, error)
	TagsFor(ctx context.Context, conversationId uuid.UUID) ([]string, error)
	Categories(ctx context.Context) ([]string, error)

	AttachFile(ctx context.Context, file *entity.FileInfo) error
	FileCountsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
	FileInfoFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*entity.FileInfo, error)
}

// cacheInvalidator is told about every committed write.
type cacheInvalidator interface {
	Invalidate()
}

type conversationService struct {
	uowFactory  unitofwork.RepositoryFactory
	sanitizer   Sanitizer
	fileStore   FileStore
	vectorIndex VectorIndex
	publisher   IPublisherService
	analytics   cacheInvalidator
	metrics     *metrics.Metrics
	logger      logger.ILogger
	ledger      tagLedger
	shadow      ftsShadow
	now         func() time.Time
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	sanitizer Sanitizer,
	fileStore FileStore,
	vectorIndex VectorIndex,
	publisher IPublisherService,
	analytics cacheInvalidator,
	m *metrics.Metrics,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory:  uowFactory,
		sanitizer:   sanitizer,
		fileStore:   fileStore,
		vectorIndex: vectorIndex,
		publisher:   publisher,
		analytics:   analytics,
		metrics:     m,
		logger:      log,
		shadow:      ftsShadow{sanitizer: sanitizer},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *conversationService) Create(ctx context.Context, conversation *entity.Conversation, force bool) (outcome entity.CreateOutcome, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.Create")
	defer finish(span, s.metrics, "create", time.Now(), &err)

	if conversation == nil {
		return "", apperror.Invalid("conversation", "is required")
	}
	if !force && !conversation.HasDialogue() {
		s.logger.Debug(moduleConversation, "Skipped conversation without dialogue", map[string]interface{}{
			"messages": len(conversation.Messages),
		})
		return entity.CreateOutcomeSkipped, nil
	}
	if err := s.prepareNew(conversation); err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("conversation.id", conversation.Id.String()))

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return "", apperror.Storage("begin create", err)
	}
	defer uow.Rollback()

	if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
		return "", apperror.Storage("insert conversation", err)
	}
	if len(conversation.Messages) > 0 {
		if err := uow.MessageRepository().CreateBatch(ctx, conversation.Messages); err != nil {
			return "", apperror.Storage("insert messages", err)
		}
	}
	if err := s.ledger.setTags(ctx, uow, conversation.Id, conversation.Metadata.Tags); err != nil {
		return "", apperror.Storage("link tags", err)
	}
	if err := s.shadow.rebuild(ctx, uow, conversation, conversation.Metadata.Tags); err != nil {
		return "", apperror.Storage("build search row", err)
	}
	if err := uow.Commit(); err != nil {
		return "", apperror.Storage("commit create", err)
	}

	s.afterWrite(ctx, EventConversationCreated, conversation.Id, map[string]interface{}{
		"title":         conversation.Title,
		"message_count": conversation.MessageCount,
	})
	s.logger.Info(moduleConversation, "Conversation created", map[string]interface{}{
		"conversation_id": conversation.Id,
		"messages":        conversation.MessageCount,
		"tags":            conversation.Metadata.Tags,
		"forced":          force,
	})
	return entity.CreateOutcomeCreated, nil
}

// prepareNew sanitises, fills defaults and validates a conversation and its messages.
func (s *conversationService) prepareNew(c *entity.Conversation) error {
	now := s.now()

	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	if c.Status == "" {
		c.Status = entity.ConversationStatusActive
	}
	if c.Status == entity.ConversationStatusDeleted {
		return apperror.Invalid("status", "cannot create a deleted conversation")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.DeletedAt = nil
	s.prepareMetadata(c)

	if err := validation.Struct(c); err != nil {
		return err
	}

	latest := c.CreatedAt
	tokens := 0
	for i, m := range c.Messages {
		if m == nil {
			return apperror.Invalid("messages", "must not contain nil entries")
		}
		m.ConversationId = c.Id
		m.Seq = int64(i + 1)
		if err := s.prepareMessage(m, now); err != nil {
			return err
		}
		if m.Timestamp.After(latest) {
			latest = m.Timestamp
		}
		tokens += m.TokenCount
	}

	if c.UpdatedAt.IsZero() || c.UpdatedAt.Before(latest) {
		c.UpdatedAt = latest
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.MessageCount = len(c.Messages)
	if c.Metadata.EstimatedTokens == 0 {
		c.Metadata.EstimatedTokens = tokens
	}
	return nil
}

func (s *conversationService) prepareMetadata(c *entity.Conversation) {
	c.Title = s.sanitizer.SanitizeText(c.Title)
	c.Metadata.Category = s.sanitizer.SanitizeText(c.Metadata.Category)
	c.Metadata.Tags = entity.NormalizeTags(c.Metadata.Tags)
	if c.Metadata.Extra == nil {
		c.Metadata.Extra = make(map[string]interface{})
	}
}

func (s *conversationService) prepareMessage(m *entity.Message, now time.Time) error {
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	m.Timestamp = m.Timestamp.UTC()
	m.Content = s.sanitizer.SanitizeRich(m.Content)
	m.Provider = s.sanitizer.SanitizeText(m.Provider)
	m.Model = s.sanitizer.SanitizeText(m.Model)
	if m.TokenCount == 0 {
		m.TokenCount = entity.EstimateTokens(m.Content)
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	return validation.Struct(m)
}

func (s *conversationService) Get(ctx context.Context, id uuid.UUID, includeMessages bool) (result *entity.Conversation, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.Get",
		trace.WithAttributes(attribute.String("conversation.id", id.String())))
	defer finish(span, s.metrics, "get", time.Now(), &err)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BeginReadOnly(ctx); err != nil {
		return nil, apperror.Storage("begin get", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return nil, nil
	}

	tags, err := uow.TagRepository().LinkedNames(ctx, id)
	if err != nil {
		return nil, apperror.Storage("find tags", err)
	}
	conversation.Metadata.Tags = tags

	if includeMessages {
		messages, err := uow.MessageRepository().FindAll(ctx,
			specification.ByConversationID{ConversationID: id},
			specification.MessageOrder{},
		)
		if err != nil {
			return nil, apperror.Storage("find messages", err)
		}
		conversation.Messages = messages
	}
	return conversation, nil
}

func (s *conversationService) Update(ctx context.Context, conversation *entity.Conversation) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.Update")
	defer finish(span, s.metrics, "update", time.Now(), &err)

	if conversation == nil {
		return apperror.Invalid("conversation", "is required")
	}
	s.prepareMetadata(conversation)
	if err := validation.Struct(conversation); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin update", err)
	}
	defer uow.Rollback()

	existing, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversation.Id})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if existing == nil {
		return apperror.NotFound("conversation", conversation.Id)
	}
	wasDeleted := existing.Status == entity.ConversationStatusDeleted
	isDeleted := conversation.Status == entity.ConversationStatusDeleted
	if wasDeleted != isDeleted {
		if wasDeleted {
			return apperror.Invalid("status", "restore the conversation before changing its status")
		}
		return apperror.Invalid("status", "use delete to remove a conversation")
	}

	count, err := uow.MessageRepository().Count(ctx, specification.ByConversationID{ConversationID: conversation.Id})
	if err != nil {
		return apperror.Storage("count messages", err)
	}

	now := s.now()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}
	conversation.CreatedAt = existing.CreatedAt
	conversation.DeletedAt = existing.DeletedAt
	conversation.MessageCount = int(count)
	conversation.UpdatedAt = now

	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		return apperror.Storage("update conversation", err)
	}
	if err := s.ledger.setTags(ctx, uow, conversation.Id, conversation.Metadata.Tags); err != nil {
		return apperror.Storage("link tags", err)
	}
	if err := s.shadow.rebuild(ctx, uow, conversation, conversation.Metadata.Tags); err != nil {
		return apperror.Storage("rebuild search row", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit update", err)
	}

	s.afterWrite(ctx, EventConversationUpdated, conversation.Id, map[string]interface{}{
		"status": string(conversation.Status),
	})
	s.logger.Info(moduleConversation, "Conversation updated", map[string]interface{}{
		"conversation_id": conversation.Id,
		"status":          conversation.Status,
	})
	return nil
}

func (s *conversationService) AppendMessage(ctx context.Context, message *entity.Message) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.AppendMessage")
	defer finish(span, s.metrics, "append_message", time.Now(), &err)

	if message == nil {
		return apperror.Invalid("message", "is required")
	}
	if err := s.prepareMessage(message, s.now()); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("conversation.id", message.ConversationId.String()))

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin append", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: message.ConversationId})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", message.ConversationId)
	}
	if conversation.Status == entity.ConversationStatusDeleted {
		return apperror.Invalid("conversation_id", "conversation is deleted")
	}

	messages := uow.MessageRepository()
	seq, err := messages.MaxSeq(ctx, conversation.Id)
	if err != nil {
		return apperror.Storage("read sequence", err)
	}
	message.Seq = seq + 1
	latest, err := messages.LatestTimestamp(ctx, conversation.Id)
	if err != nil {
		return apperror.Storage("read latest message", err)
	}

	if err := messages.Create(ctx, message); err != nil {
		return apperror.Storage("insert message", err)
	}

	// Recount instead of incrementing so the column cannot drift.
	count, err := messages.Count(ctx, specification.ByConversationID{ConversationID: conversation.Id})
	if err != nil {
		return apperror.Storage("count messages", err)
	}
	updatedAt := message.Timestamp
	if updatedAt.Before(conversation.UpdatedAt) {
		updatedAt = conversation.UpdatedAt
	}
	if err := uow.ConversationRepository().Touch(ctx, conversation.Id, int(count), updatedAt); err != nil {
		return apperror.Storage("touch conversation", err)
	}
	if err := s.shadow.append(ctx, uow, conversation, message, latest); err != nil {
		return apperror.Storage("append search row", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit append", err)
	}

	s.afterWrite(ctx, EventConversationUpdated, conversation.Id, map[string]interface{}{
		"message_id":    message.Id.String(),
		"role":          string(message.Role),
		"message_count": count,
	})
	s.logger.Info(moduleConversation, "Message appended", map[string]interface{}{
		"conversation_id": conversation.Id,
		"message_id":      message.Id,
		"seq":             message.Seq,
	})
	return nil
}

func (s *conversationService) GetMessages(ctx context.Context, conversationId uuid.UUID, limit, offset int) (result []*entity.Message, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.GetMessages")
	defer finish(span, s.metrics, "get_messages", time.Now(), &err)

	if limit < 0 {
		return nil, apperror.Invalid("limit", "must not be negative")
	}
	if offset < 0 {
		return nil, apperror.Invalid("offset", "must not be negative")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.MessageOrder{},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, apperror.Storage("find messages", err)
	}
	return messages, nil
}

func (s *conversationService) List(ctx context.Context, opts entity.ListOptions) (result []*entity.Conversation, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.List")
	defer finish(span, s.metrics, "list", time.Now(), &err)

	if err := validation.Struct(opts); err != nil {
		return nil, err
	}

	specs := make([]specification.Specification, 0, 4)
	if opts.Status != "" {
		specs = append(specs, specification.ByStatus{Status: opts.Status})
	} else if !opts.IncludeDeleted {
		specs = append(specs, specification.ExcludeDeleted{})
	}
	specs = append(specs,
		specification.ConversationOrder{Sort: opts.Sort},
		specification.Pagination{Limit: opts.Limit, Offset: opts.Offset},
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ConversationRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Storage("list conversations", err)
	}
	if err := s.attachTags(ctx, uow, conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *conversationService) attachTags(ctx context.Context, uow unitofwork.UnitOfWork, conversations []*entity.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(conversations))
	for i, c := range conversations {
		ids[i] = c.Id
	}
	tags, err := uow.TagRepository().LinkedNamesFor(ctx, ids)
	if err != nil {
		return apperror.Storage("find tags", err)
	}
	for _, c := range conversations {
		if names, ok := tags[c.Id]; ok {
			c.Metadata.Tags = names
		}
	}
	return nil
}

func (s *conversationService) SaveSummary(ctx context.Context, summary *entity.ConversationSummary) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.SaveSummary")
	defer finish(span, s.metrics, "save_summary", time.Now(), &err)

	if summary == nil {
		return apperror.Invalid("summary", "is required")
	}
	summary.Summary = s.sanitizer.SanitizeRich(summary.Summary)
	summary.Model = s.sanitizer.SanitizeText(summary.Model)
	topics := make([]string, 0, len(summary.KeyTopics))
	for _, t := range summary.KeyTopics {
		if t = s.sanitizer.SanitizeText(t); t != "" {
			topics = append(topics, t)
		}
	}
	summary.KeyTopics = topics
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = s.now()
	}
	summary.GeneratedAt = summary.GeneratedAt.UTC()
	if err := validation.Struct(summary); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin save summary", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: summary.ConversationId})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", summary.ConversationId)
	}
	if err := uow.SummaryRepository().Upsert(ctx, summary); err != nil {
		return apperror.Storage("save summary", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit save summary", err)
	}

	s.logger.Info(moduleConversation, "Summary saved", map[string]interface{}{
		"conversation_id": summary.ConversationId,
		"model":           summary.Model,
	})
	return nil
}

func (s *conversationService) GetSummary(ctx context.Context, conversationId uuid.UUID) (*entity.ConversationSummary, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	summary, err := uow.SummaryRepository().FindOne(ctx, conversationId)
	if err != nil {
		return nil, apperror.Storage("find summary", err)
	}
	return summary, nil
}

func (s *conversationService) AllTags(ctx context.Context, minUsage int) (result []entity.TagUsage, err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.AllTags")
	defer finish(span, s.metrics, "all_tags", time.Now(), &err)

	if minUsage < 0 {
		return nil, apperror.Invalid("min_usage", "must not be negative")
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tags, err := uow.TagRepository().FindAll(ctx,
		specification.MinUsage{Min: minUsage},
		specification.TagUsageOrder{},
	)
	if err != nil {
		return nil, apperror.Storage("find tags", err)
	}
	return tags, nil
}

func (s *conversationService) TagsFor(ctx context.Context, conversationId uuid.UUID) ([]string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	tags, err := uow.TagRepository().LinkedNames(ctx, conversationId)
	if err != nil {
		return nil, apperror.Storage("find tags", err)
	}
	return tags, nil
}

func (s *conversationService) Categories(ctx context.Context) ([]string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	categories, err := uow.ConversationRepository().Categories(ctx)
	if err != nil {
		return nil, apperror.Storage("find categories", err)
	}
	return categories, nil
}

func (s *conversationService) AttachFile(ctx context.Context, file *entity.FileInfo) (err error) {
	ctx, span := tracer().Start(ctx, "ConversationService.AttachFile")
	defer finish(span, s.metrics, "attach_file", time.Now(), &err)

	if file == nil {
		return apperror.Invalid("file", "is required")
	}
	if file.Id == uuid.Nil {
		file.Id = uuid.New()
	}
	file.FileName = s.sanitizer.SanitizeText(file.FileName)
	if file.CreatedAt.IsZero() {
		file.CreatedAt = s.now()
	}
	if err := validation.Struct(file); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Storage("begin attach file", err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: file.ConversationId})
	if err != nil {
		return apperror.Storage("find conversation", err)
	}
	if conversation == nil {
		return apperror.NotFound("conversation", file.ConversationId)
	}
	if err := uow.FileRepository().Create(ctx, file); err != nil {
		return apperror.Storage("insert file record", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Storage("commit attach file", err)
	}

	s.logger.Info(moduleConversation, "File attached", map[string]interface{}{
		"conversation_id": file.ConversationId,
		"file_id":         file.Id,
		"size_bytes":      file.SizeBytes,
	})
	return nil
}

// FileCountsFor returns a count for every requested id, zero included, in one query.
func (s *conversationService) FileCountsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	counts, err := uow.FileRepository().CountByConversationIds(ctx, ids)
	if err != nil {
		return nil, apperror.Storage("count files", err)
	}
	for _, id := range ids {
		if _, ok := counts[id]; !ok {
			counts[id] = 0
		}
	}
	return counts, nil
}

// FileInfoFor returns the files of every requested id, empty slices included, in one query.
func (s *conversationService) FileInfoFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*entity.FileInfo, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	files, err := uow.FileRepository().FindByConversationIds(ctx, ids)
	if err != nil {
		return nil, apperror.Storage("find files", err)
	}
	for _, id := range ids {
		if _, ok := files[id]; !ok {
			files[id] = []*entity.FileInfo{}
		}
	}
	return files, nil
}

// afterWrite runs once a transaction has committed.
func (s *conversationService) afterWrite(ctx context.Context, eventType string, id uuid.UUID, data map[string]interface{}) {
	if s.analytics != nil {
		s.analytics.Invalidate()
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, eventType, id, data)
	}
}
