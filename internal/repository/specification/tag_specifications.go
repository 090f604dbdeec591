package specification

import "gorm.io/gorm"

type MinUsage struct {
	Min int
}

func (s MinUsage) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("usage_count >= ?", s.Min)
}

// TagUsageOrder sorts by usage descending, then name ascending.
type TagUsageOrder struct{}

func (s TagUsageOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("usage_count DESC").Order("name ASC")
}
