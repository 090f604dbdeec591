package controller

import (
	"conversation-core/internal/dto"
	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
	"conversation-core/internal/pkg/serverutils"
	"conversation-core/internal/service"
	internalWS "conversation-core/internal/websocket"
	"conversation-core/pkg/vectorindex"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Restore(ctx *fiber.Ctx) error
	AppendMessage(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	SaveSummary(ctx *fiber.Ctx) error
	GetSummary(ctx *fiber.Ctx) error
	GetTags(ctx *fiber.Ctx) error
	AllTags(ctx *fiber.Ctx) error
	Categories(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	FileCounts(ctx *fiber.Ctx) error
	FileInfo(ctx *fiber.Ctx) error
	UploadFile(ctx *fiber.Ctx) error
	ReassignOrphans(ctx *fiber.Ctx) error
	IndexEmbeddings(ctx *fiber.Ctx) error
	QueryEmbeddings(ctx *fiber.Ctx) error
	Events(ctx *fiber.Ctx) error
}

type conversationController struct {
	store      service.IConversationService
	search     service.ISearchService
	analytics  service.IAnalyticsService
	files      service.IFileService
	embeddings service.IEmbeddingService
	hub        *internalWS.Hub
	jwtSecret  string
}

func NewConversationController(
	store service.IConversationService,
	search service.ISearchService,
	analytics service.IAnalyticsService,
	files service.IFileService,
	embeddings service.IEmbeddingService,
	hub *internalWS.Hub,
	jwtSecret string,
) IConversationController {
	return &conversationController{
		store:      store,
		search:     search,
		analytics:  analytics,
		files:      files,
		embeddings: embeddings,
		hub:        hub,
		jwtSecret:  jwtSecret,
	}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))

	// Fixed paths first so they are not taken for an :id.
	h.Get("/search", c.Search)
	h.Get("/tags", c.AllTags)
	h.Get("/categories", c.Categories)
	h.Get("/stats", c.Stats)
	h.Get("/events", c.Events)
	h.Post("/files/counts", c.FileCounts)
	h.Post("/files/info", c.FileInfo)

	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Delete(":id", c.Delete)
	h.Post(":id/restore", c.Restore)
	h.Post(":id/messages", c.AppendMessage)
	h.Get(":id/messages", c.GetMessages)
	h.Put(":id/summary", c.SaveSummary)
	h.Get(":id/summary", c.GetSummary)
	h.Get(":id/tags", c.GetTags)
	h.Post(":id/files", c.UploadFile)
	h.Post(":id/orphans", c.ReassignOrphans)
	h.Put(":id/embeddings", c.IndexEmbeddings)
	h.Post(":id/embeddings/query", c.QueryEmbeddings)
}

func parseId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Invalid("id", "must be a UUID")
	}
	return id, nil
}

func (c *conversationController) GetAll(ctx *fiber.Ctx) error {
	var query dto.ListConversationsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Invalid("query", err.Error())
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.store.List(ctx.UserContext(), query.ToOptions())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all conversation", dto.NewConversationResponses(res)))
}

func (c *conversationController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	conversation := req.ToEntity()
	outcome, err := c.store.Create(ctx.UserContext(), conversation, ctx.QueryBool("force"))
	if err != nil {
		return err
	}

	res := dto.CreateConversationResponse{Outcome: string(outcome)}
	if outcome == entity.CreateOutcomeSkipped {
		return ctx.JSON(serverutils.SuccessResponse("Conversation skipped", res))
	}
	res.Id = conversation.Id
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *conversationController) Show(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	res, err := c.store.Get(ctx.UserContext(), id, ctx.QueryBool("include_messages", true))
	if err != nil {
		return err
	}
	if res == nil {
		return apperror.NotFound("conversation", id)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show conversation", dto.NewConversationResponse(res)))
}

func (c *conversationController) Update(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	req.Id = id
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	conversation, err := c.store.Get(ctx.UserContext(), id, false)
	if err != nil {
		return err
	}
	if conversation == nil {
		return apperror.NotFound("conversation", id)
	}
	req.Apply(conversation)

	if err := c.store.Update(ctx.UserContext(), conversation); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update conversation", dto.NewConversationResponse(conversation)))
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	hard := ctx.QueryBool("hard")
	if err := c.store.Delete(ctx.UserContext(), id, !hard); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conversation", nil))
}

func (c *conversationController) Restore(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	if err := c.store.Restore(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success restore conversation", nil))
}

func (c *conversationController) AppendMessage(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	var req dto.MessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	message := req.ToEntity(id)
	if err := c.store.AppendMessage(ctx.UserContext(), message); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success append message", dto.NewMessageResponse(message)))
}

func (c *conversationController) GetMessages(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	res, err := c.store.GetMessages(ctx.UserContext(), id, ctx.QueryInt("limit", 0), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get messages", dto.NewMessageResponses(res)))
}

func (c *conversationController) SaveSummary(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	var req dto.SaveSummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	summary := req.ToEntity(id)
	if err := c.store.SaveSummary(ctx.UserContext(), summary); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save summary", summary))
}

func (c *conversationController) GetSummary(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	res, err := c.store.GetSummary(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	if res == nil {
		return apperror.NotFound("summary", id)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get summary", res))
}

func (c *conversationController) GetTags(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	res, err := c.store.TagsFor(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get tags", res))
}

func (c *conversationController) AllTags(ctx *fiber.Ctx) error {
	res, err := c.store.AllTags(ctx.UserContext(), ctx.QueryInt("min_usage", 1))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all tags", res))
}

func (c *conversationController) Categories(ctx *fiber.Ctx) error {
	res, err := c.store.Categories(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get categories", res))
}

func (c *conversationController) Search(ctx *fiber.Ctx) error {
	var query dto.SearchQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Invalid("query", err.Error())
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}
	q, err := query.ToEntity()
	if err != nil {
		return err
	}

	res, err := c.search.Search(ctx.UserContext(), q)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search conversation", res))
}

func (c *conversationController) Stats(ctx *fiber.Ctx) error {
	var query dto.StatsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Invalid("query", err.Error())
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.analytics.Compute(ctx.UserContext(), query.ToOptions())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get statistics", res))
}

func (c *conversationController) FileCounts(ctx *fiber.Ctx) error {
	var req dto.ConversationIdsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.store.FileCountsFor(ctx.UserContext(), req.Ids)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success count files", res))
}

func (c *conversationController) FileInfo(ctx *fiber.Ctx) error {
	var req dto.ConversationIdsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.store.FileInfoFor(ctx.UserContext(), req.Ids)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get files", res))
}

func (c *conversationController) UploadFile(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return apperror.Invalid("file", "multipart field 'file' is required")
	}
	f, err := header.Open()
	if err != nil {
		return apperror.Invalid("file", err.Error())
	}
	defer f.Close()

	res, err := c.files.Upload(ctx.UserContext(), id, header.Filename, header.Header.Get("Content-Type"), f)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success upload file", res))
}

func (c *conversationController) ReassignOrphans(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	moved, err := c.store.ReassignOrphans(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reassign orphan files", dto.ReassignOrphansResponse{
		TargetId: id,
		Moved:    moved,
	}))
}

func (c *conversationController) IndexEmbeddings(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	var req dto.IndexEmbeddingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	chunks := make([]vectorindex.Chunk, len(req.Chunks))
	for i, ch := range req.Chunks {
		chunks[i] = vectorindex.Chunk{Document: ch.Document, Embedding: ch.Embedding}
	}
	if err := c.embeddings.Index(ctx.UserContext(), id, chunks); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success index embeddings", nil))
}

func (c *conversationController) QueryEmbeddings(ctx *fiber.Ctx) error {
	id, err := parseId(ctx)
	if err != nil {
		return err
	}

	var req dto.QueryEmbeddingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Invalid("body", err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.embeddings.Query(ctx.UserContext(), id, req.Embedding, req.K)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query embeddings", res))
}

// Events upgrades to a websocket that streams conversation events. An optional
// conversation_id query parameter narrows the stream to one conversation.
func (c *conversationController) Events(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	filter := uuid.Nil
	if raw := ctx.Query("conversation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperror.Invalid("conversation_id", "must be a UUID")
		}
		filter = id
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(c.hub, conn, filter)
	})(ctx)
}
