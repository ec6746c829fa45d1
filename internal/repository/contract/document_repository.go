package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	// Create inserts a new version row.
	Create(ctx context.Context, document *entity.Document) error
	// FindLatest returns the current version of id, or nil.
	FindLatest(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type SuggestionRepository interface {
	CreateBatch(ctx context.Context, suggestions []*entity.Suggestion) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Suggestion, error)
	DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
