package model

import "gorm.io/gorm"

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Chat{}, &Message{}, &Document{}, &Suggestion{}}
}

// AutoMigrate creates or updates the tables for every model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
