package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// PinnedAfter matches suggestions targeting a document version newer than Time.
type PinnedAfter struct {
	Time time.Time
}

func (s PinnedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_created_at > ?", s.Time)
}
