package service

import (
	"context"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IDocumentService interface {
	// GetVersions returns every version of a document, oldest first.
	GetVersions(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) ([]dto.DocumentResponse, error)
	// DeleteVersionsAfter removes versions newer than after and the suggestions pinned to them.
	DeleteVersionsAfter(ctx context.Context, userId uuid.UUID, documentId uuid.UUID, after time.Time) (*dto.DeleteDocumentsResponse, error)
	GetSuggestions(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) ([]dto.SuggestionResponse, error)
}

type documentService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDocumentService(uowFactory unitofwork.RepositoryFactory) IDocumentService {
	return &documentService{
		uowFactory: uowFactory,
	}
}

func (s *documentService) GetVersions(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) ([]dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := ownedDocument(ctx, uow, userId, documentId); err != nil {
		return nil, err
	}

	versions, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByID{ID: documentId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}

	res := make([]dto.DocumentResponse, len(versions))
	for i, d := range versions {
		res[i] = dto.DocumentResponse{
			Id:        d.Id,
			UserId:    d.UserId,
			Title:     d.Title,
			Kind:      d.Kind,
			Content:   d.Content,
			CreatedAt: d.CreatedAt,
		}
	}
	return res, nil
}

func (s *documentService) DeleteVersionsAfter(ctx context.Context, userId uuid.UUID, documentId uuid.UUID, after time.Time) (*dto.DeleteDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apierr.Persistence(err)
	}
	defer uow.Rollback()

	if _, err := ownedDocument(ctx, uow, userId, documentId); err != nil {
		return nil, err
	}

	after = after.UTC()
	deletedSuggestions, err := uow.SuggestionRepository().DeleteWhere(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.PinnedAfter{Time: after},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	deletedVersions, err := uow.DocumentRepository().DeleteWhere(ctx,
		specification.ByID{ID: documentId},
		specification.CreatedAfter{Time: after},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apierr.Persistence(err)
	}

	return &dto.DeleteDocumentsResponse{
		DeletedVersions:    deletedVersions,
		DeletedSuggestions: deletedSuggestions,
	}, nil
}

func (s *documentService) GetSuggestions(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) ([]dto.SuggestionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := ownedDocument(ctx, uow, userId, documentId); err != nil {
		return nil, err
	}

	suggestions, err := uow.SuggestionRepository().FindAll(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, apierr.Persistence(err)
	}

	res := make([]dto.SuggestionResponse, len(suggestions))
	for i, sg := range suggestions {
		res[i] = dto.SuggestionResponse{
			Id:                sg.Id,
			DocumentId:        sg.DocumentId,
			DocumentCreatedAt: sg.DocumentCreatedAt,
			OriginalText:      sg.OriginalText,
			SuggestedText:     sg.SuggestedText,
			Description:       sg.Description,
			IsResolved:        sg.IsResolved,
			UserId:            sg.UserId,
			CreatedAt:         sg.CreatedAt,
		}
	}
	return res, nil
}

func ownedDocument(ctx context.Context, uow unitofwork.UnitOfWork, userId, documentId uuid.UUID) (*entity.Document, error) {
	doc, err := uow.DocumentRepository().FindLatest(ctx, documentId)
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if doc == nil {
		return nil, apierr.NotFound("document %s not found", documentId)
	}
	if doc.UserId != userId {
		return nil, apierr.Unauthorized("document %s belongs to another user", documentId)
	}
	return doc, nil
}
