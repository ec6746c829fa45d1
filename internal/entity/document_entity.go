package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is one version; (Id, CreatedAt) identifies a row and the latest CreatedAt is the
// current version.
type Document struct {
	Id        uuid.UUID
	CreatedAt time.Time
	UserId    uuid.UUID
	Title     string
	Kind      string
	Content   string
}

type Suggestion struct {
	Id                uuid.UUID
	DocumentId        uuid.UUID
	DocumentCreatedAt time.Time
	OriginalText      string
	SuggestedText     string
	Description       *string
	IsResolved        bool
	UserId            uuid.UUID
	CreatedAt         time.Time
}
