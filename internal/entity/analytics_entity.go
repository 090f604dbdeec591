package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation-length histogram buckets, by message count.
var HistogramBuckets = []string{"0", "1-5", "6-10", "11-20", "21-50", "50+"}

func HistogramBucket(messageCount int) string {
	switch {
	case messageCount <= 0:
		return "0"
	case messageCount <= 5:
		return "1-5"
	case messageCount <= 10:
		return "6-10"
	case messageCount <= 20:
		return "11-20"
	case messageCount <= 50:
		return "21-50"
	default:
		return "50+"
	}
}

type AnalyticsOptions struct {
	IncludeDeleted bool
	ActivityDays   int `validate:"gte=0"`
	TopK           int `validate:"gte=0"`
	Now            time.Time
}

type DailyActivity struct {
	Date  string `json:"date"` // 2006-01-02
	Count int64  `json:"count"`
}

type ConversationRank struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
}

type ModelUsage struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	MessageCount int64  `json:"message_count"`
	TotalTokens  int64  `json:"total_tokens"`
}

type Analytics struct {
	TotalConversations    int64                        `json:"total_conversations"`
	CountsByStatus        map[ConversationStatus]int64 `json:"counts_by_status"`
	TotalMessages         int64                        `json:"total_messages"`
	TotalTokens           int64                        `json:"total_tokens"`
	AvgMessagesPerConv    float64                      `json:"avg_messages_per_conversation"`
	AvgTokensPerConv      float64                      `json:"avg_tokens_per_conversation"`
	MessageCountHistogram map[string]int64             `json:"message_count_histogram"`
	DailyActivity         []DailyActivity              `json:"daily_activity"`
	TopTags               []TagUsage                   `json:"top_tags"`
	TopConversations      []ConversationRank           `json:"top_conversations"`
	ModelUsage            []ModelUsage                 `json:"model_usage"`
	ComputedAt            time.Time                    `json:"computed_at"`
}

// Clone returns a deep copy so callers can modify a snapshot without touching cached state.
func (a *Analytics) Clone() *Analytics {
	if a == nil {
		return nil
	}
	out := *a
	out.CountsByStatus = make(map[ConversationStatus]int64, len(a.CountsByStatus))
	for k, v := range a.CountsByStatus {
		out.CountsByStatus[k] = v
	}
	out.MessageCountHistogram = make(map[string]int64, len(a.MessageCountHistogram))
	for k, v := range a.MessageCountHistogram {
		out.MessageCountHistogram[k] = v
	}
	out.DailyActivity = append([]DailyActivity{}, a.DailyActivity...)
	out.TopTags = append([]TagUsage{}, a.TopTags...)
	out.TopConversations = append([]ConversationRank{}, a.TopConversations...)
	out.ModelUsage = append([]ModelUsage{}, a.ModelUsage...)
	return &out
}
