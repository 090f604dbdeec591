package dto

import (
	"strings"
	"time"

	"conversation-core/internal/entity"
	"conversation-core/internal/pkg/apperror"
)

// SearchQuery is bound from the query string. Tags are comma separated, times RFC 3339.
type SearchQuery struct {
	Text          string `query:"q"`
	Scope         string `query:"scope" validate:"omitempty,oneof=title content all"`
	Tags          string `query:"tags"`
	Category      string `query:"category"`
	Status        string `query:"status" validate:"omitempty,oneof=active archived pinned deleted"`
	CreatedAfter  string `query:"created_after"`
	CreatedBefore string `query:"created_before"`
	UpdatedAfter  string `query:"updated_after"`
	UpdatedBefore string `query:"updated_before"`
	MinMessages   *int   `query:"min_messages"`
	MaxMessages   *int   `query:"max_messages"`
	Sort          string `query:"sort"`
	Limit         int    `query:"limit" validate:"gte=0"`
	Offset        int    `query:"offset" validate:"gte=0"`
}

func (q SearchQuery) ToEntity() (entity.SearchQuery, error) {
	created, err := timeRange("created", q.CreatedAfter, q.CreatedBefore)
	if err != nil {
		return entity.SearchQuery{}, err
	}
	updated, err := timeRange("updated", q.UpdatedAfter, q.UpdatedBefore)
	if err != nil {
		return entity.SearchQuery{}, err
	}

	var tags []string
	for _, t := range strings.Split(q.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return entity.SearchQuery{
		Text:            q.Text,
		Scope:           entity.SearchScope(q.Scope),
		Tags:            tags,
		Category:        q.Category,
		Status:          entity.ConversationStatus(q.Status),
		Created:         created,
		Updated:         updated,
		MinMessageCount: q.MinMessages,
		MaxMessageCount: q.MaxMessages,
		Sort:            entity.SortOrder(q.Sort),
		Limit:           q.Limit,
		Offset:          q.Offset,
	}, nil
}

func timeRange(field, after, before string) (entity.TimeRange, error) {
	var r entity.TimeRange
	if after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return r, apperror.Invalid(field+"_after", "must be an RFC 3339 timestamp")
		}
		r.After = &t
	}
	if before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return r, apperror.Invalid(field+"_before", "must be an RFC 3339 timestamp")
		}
		r.Before = &t
	}
	return r, nil
}

type StatsQuery struct {
	IncludeDeleted bool `query:"include_deleted"`
	Days           int  `query:"days" validate:"gte=0,lte=366"`
	TopK           int  `query:"top_k" validate:"gte=0,lte=100"`
}

func (q StatsQuery) ToOptions() entity.AnalyticsOptions {
	return entity.AnalyticsOptions{
		IncludeDeleted: q.IncludeDeleted,
		ActivityDays:   q.Days,
		TopK:           q.TopK,
	}
}

type EmbeddingChunk struct {
	Document  string    `json:"document"`
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
}

type IndexEmbeddingsRequest struct {
	Chunks []EmbeddingChunk `json:"chunks" validate:"dive"`
}

type QueryEmbeddingsRequest struct {
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
	K         int       `json:"k" validate:"gte=0,lte=100"`
}
