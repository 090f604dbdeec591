package entity

import (
	"time"

	"github.com/google/uuid"
)

type SearchScope string

const (
	SearchScopeTitle   SearchScope = "title"
	SearchScopeContent SearchScope = "content"
	SearchScopeAll     SearchScope = "all"
)

type SortOrder string

const (
	SortCreatedAsc       SortOrder = "created_asc"
	SortCreatedDesc      SortOrder = "created_desc"
	SortUpdatedAsc       SortOrder = "updated_asc"
	SortUpdatedDesc      SortOrder = "updated_desc"
	SortTitleAsc         SortOrder = "title_asc"
	SortTitleDesc        SortOrder = "title_desc"
	SortMessageCountAsc  SortOrder = "message_count_asc"
	SortMessageCountDesc SortOrder = "message_count_desc"
)

const DefaultSortOrder = SortUpdatedDesc

// Column returns the conversations column and direction for the order.
// Unknown values fall back to the default order.
func (o SortOrder) Column() (column string, desc bool) {
	switch o {
	case SortCreatedAsc:
		return "created_at", false
	case SortCreatedDesc:
		return "created_at", true
	case SortUpdatedAsc:
		return "updated_at", false
	case SortTitleAsc:
		return "title", false
	case SortTitleDesc:
		return "title", true
	case SortMessageCountAsc:
		return "message_count", false
	case SortMessageCountDesc:
		return "message_count", true
	default:
		return "updated_at", true
	}
}

// TimeRange is inclusive on both ends; zero bounds are open.
type TimeRange struct {
	After  *time.Time
	Before *time.Time
}

// Empty reports a range that can never match (After later than Before).
func (r TimeRange) Empty() bool {
	return r.After != nil && r.Before != nil && r.After.After(*r.Before)
}

type SearchQuery struct {
	Text            string
	Scope           SearchScope `validate:"omitempty,oneof=title content all"`
	Tags            []string
	Category        string
	Status          ConversationStatus `validate:"omitempty,oneof=active archived pinned deleted"`
	Created         TimeRange
	Updated         TimeRange
	MinMessageCount *int
	MaxMessageCount *int
	Sort            SortOrder
	Limit           int `validate:"gte=0"`
	Offset          int `validate:"gte=0"`
}

type SearchResult struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	MatchCount     int       `json:"match_count"`
	MatchedFields  []string  `json:"matched_fields"`
}

type SearchResults struct {
	Results    []*SearchResult `json:"results"`
	TotalCount int64           `json:"total_count"`
	Elapsed    time.Duration   `json:"elapsed"`
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
}

type ListOptions struct {
	Status         ConversationStatus `validate:"omitempty,oneof=active archived pinned deleted"`
	Sort           SortOrder
	Limit          int `validate:"gte=0"`
	Offset         int `validate:"gte=0"`
	IncludeDeleted bool
}
