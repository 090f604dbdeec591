package service

import (
	"context"
	"time"

	"conversation-core/internal/pkg/logger"
	"conversation-core/pkg/events"
	"conversation-core/pkg/metrics"

	"github.com/google/uuid"
)

const (
	EventConversationCreated = "conversation.created"
	EventConversationUpdated = "conversation.updated"
	EventConversationDeleted = "conversation.deleted"
	EventConversationRestore = "conversation.restored"
	EventConversationPurged  = "conversation.purged"
	EventFilesReassigned     = "conversation.files_reassigned"
)

// IPublisherService announces committed changes. Publishing never fails the
// write that triggered it.
type IPublisherService interface {
	Publish(ctx context.Context, eventType string, conversationId uuid.UUID, data map[string]interface{})
}

type publisherService struct {
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  logger.ILogger
}

func NewPublisherService(bus *events.Bus, m *metrics.Metrics, log logger.ILogger) IPublisherService {
	return &publisherService{
		bus:     bus,
		metrics: m,
		logger:  log,
	}
}

func (p *publisherService) Publish(ctx context.Context, eventType string, conversationId uuid.UUID, data map[string]interface{}) {
	if p.bus == nil {
		return
	}

	payload := map[string]interface{}{
		"conversation_id": conversationId.String(),
	}
	for k, v := range data {
		payload[k] = v
	}

	err := p.bus.Publish(ctx, events.BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	})
	p.metrics.EventPublished(eventType, err)
	if err != nil {
		p.logger.Error("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":            eventType,
			"conversation_id": conversationId,
			"error":           err.Error(),
		})
	}
}
