package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document rows are versions: the primary key is (id, created_at).
type Document struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"type:text;not null"`
	Kind      string    `gorm:"type:varchar(16);not null;default:'text'"`
	Content   *string   `gorm:"type:text"`
}

func (Document) TableName() string {
	return "documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.Id)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}

type Suggestion struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId        uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentCreatedAt time.Time `gorm:"not null"`
	OriginalText      string    `gorm:"type:text;not null"`
	SuggestedText     string    `gorm:"type:text;not null"`
	Description       *string   `gorm:"type:text"`
	IsResolved        bool      `gorm:"not null;default:false"`
	UserId            uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}

func (s *Suggestion) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.Id)
	return nil
}
