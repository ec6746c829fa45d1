package mapper

import (
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) DocumentToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	var content string
	if d.Content != nil {
		content = *d.Content
	}
	return &entity.Document{
		Id:        d.Id,
		CreatedAt: d.CreatedAt,
		UserId:    d.UserId,
		Title:     d.Title,
		Kind:      d.Kind,
		Content:   content,
	}
}

func (m *DocumentMapper) DocumentToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	content := d.Content
	return &model.Document{
		Id:        d.Id,
		CreatedAt: d.CreatedAt,
		UserId:    d.UserId,
		Title:     d.Title,
		Kind:      d.Kind,
		Content:   &content,
	}
}

func (m *DocumentMapper) SuggestionToEntity(s *model.Suggestion) *entity.Suggestion {
	if s == nil {
		return nil
	}
	return &entity.Suggestion{
		Id:                s.Id,
		DocumentId:        s.DocumentId,
		DocumentCreatedAt: s.DocumentCreatedAt,
		OriginalText:      s.OriginalText,
		SuggestedText:     s.SuggestedText,
		Description:       s.Description,
		IsResolved:        s.IsResolved,
		UserId:            s.UserId,
		CreatedAt:         s.CreatedAt,
	}
}

func (m *DocumentMapper) SuggestionToModel(s *entity.Suggestion) *model.Suggestion {
	if s == nil {
		return nil
	}
	return &model.Suggestion{
		Id:                s.Id,
		DocumentId:        s.DocumentId,
		DocumentCreatedAt: s.DocumentCreatedAt,
		OriginalText:      s.OriginalText,
		SuggestedText:     s.SuggestedText,
		Description:       s.Description,
		IsResolved:        s.IsResolved,
		UserId:            s.UserId,
		CreatedAt:         s.CreatedAt,
	}
}
