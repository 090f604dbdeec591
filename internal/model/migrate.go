package model

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Conversation{},
		&Message{},
		&Tag{},
		&ConversationTag{},
		&ConversationSummary{},
		&ConversationFts{},
		&FileRecord{},
		&ConversationEmbedding{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
