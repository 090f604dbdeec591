package specification

import (
	"strings"

	"conversation-core/internal/entity"

	"gorm.io/gorm"
)

// Conversation specifications qualify their columns so they can be combined with joins.

type ByStatus struct {
	Status entity.ConversationStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversations.status = ?", string(s.Status))
}

// ExcludeDeleted hides soft-deleted conversations.
type ExcludeDeleted struct{}

func (s ExcludeDeleted) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversations.status <> ?", string(entity.ConversationStatusDeleted))
}

type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversations.category = ?", s.Category)
}

type CreatedWithin struct {
	Range entity.TimeRange
}

func (s CreatedWithin) Apply(db *gorm.DB) *gorm.DB {
	return applyRange(db, "conversations.created_at", s.Range)
}

type UpdatedWithin struct {
	Range entity.TimeRange
}

func (s UpdatedWithin) Apply(db *gorm.DB) *gorm.DB {
	return applyRange(db, "conversations.updated_at", s.Range)
}

func applyRange(db *gorm.DB, column string, r entity.TimeRange) *gorm.DB {
	if r.After != nil {
		db = db.Where(column+" >= ?", r.After.UTC())
	}
	if r.Before != nil {
		db = db.Where(column+" <= ?", r.Before.UTC())
	}
	return db
}

type MessageCountBetween struct {
	Min *int
	Max *int
}

func (s MessageCountBetween) Apply(db *gorm.DB) *gorm.DB {
	if s.Min != nil {
		db = db.Where("conversations.message_count >= ?", *s.Min)
	}
	if s.Max != nil {
		db = db.Where("conversations.message_count <= ?", *s.Max)
	}
	return db
}

// HasAllTags keeps conversations linked to every one of the (normalised) tags.
type HasAllTags struct {
	Tags []string
}

func (s HasAllTags) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Tags) == 0 {
		return db
	}
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table("conversation_tags").
		Select("conversation_id").
		Where("tag_name IN ?", s.Tags).
		Group("conversation_id").
		Having("COUNT(DISTINCT tag_name) = ?", len(s.Tags))
	return db.Where("conversations.id IN (?)", sub)
}

// TextMatch is a case-insensitive substring match against the folded columns of
// the shadow row. Title scope looks at the title, Content scope at the message
// text, All at either.
type TextMatch struct {
	Text  string
	Scope entity.SearchScope
}

func (s TextMatch) Apply(db *gorm.DB) *gorm.DB {
	if strings.TrimSpace(s.Text) == "" {
		return db
	}
	pattern := LikePattern(s.Text)

	rows := db.Session(&gorm.Session{NewDB: true}).
		Table("conversation_fts").
		Select("conversation_id")

	switch s.Scope {
	case entity.SearchScopeTitle:
		rows = rows.Where("title_folded LIKE ? ESCAPE '\\'", pattern)
	case entity.SearchScopeContent:
		rows = rows.Where("content_folded LIKE ? ESCAPE '\\'", pattern)
	default:
		rows = rows.Where("title_folded LIKE ? ESCAPE '\\' OR content_folded LIKE ? ESCAPE '\\'", pattern, pattern)
	}
	return db.Where("conversations.id IN (?)", rows)
}

// LikePattern lower-cases text, escapes LIKE wildcards and wraps it in '%'.
func LikePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(text)) + "%"
}

// ConversationOrder sorts by the requested order with id as the stable tie-break.
type ConversationOrder struct {
	Sort entity.SortOrder
}

func (s ConversationOrder) Apply(db *gorm.DB) *gorm.DB {
	column, desc := s.Sort.Column()
	expr := "conversations." + column
	if column == "title" {
		expr = "LOWER(conversations.title)"
	}
	direction := " ASC"
	if desc {
		direction = " DESC"
	}
	return db.Order(expr + direction).Order("conversations.id ASC")
}
