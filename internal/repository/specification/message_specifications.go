package specification

import "gorm.io/gorm"

// MessageOrder is the canonical message order: timestamp, then insertion sequence.
type MessageOrder struct{}

func (s MessageOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("sent_at ASC").Order("seq ASC")
}
