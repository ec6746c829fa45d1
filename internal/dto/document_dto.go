package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentResponse struct {
	Id        uuid.UUID `json:"id"`
	UserId    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type SuggestionResponse struct {
	Id                uuid.UUID `json:"id"`
	DocumentId        uuid.UUID `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       *string   `json:"description"`
	IsResolved        bool      `json:"isResolved"`
	UserId            uuid.UUID `json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
}

type DeleteDocumentsResponse struct {
	DeletedVersions    int64 `json:"deletedVersions"`
	DeletedSuggestions int64 `json:"deletedSuggestions"`
}
