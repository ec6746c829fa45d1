package implementation

import (
	"context"
	"errors"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, document *entity.Document) error {
	m := r.mapper.DocumentToModel(document)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.DocumentToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) FindLatest(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var m model.Document
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DocumentToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Document, len(models))
	for i, m := range models {
		entities[i] = r.mapper.DocumentToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRepositoryImpl) DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error) {
	if len(specs) == 0 {
		return 0, errMissingSpecification
	}
	res := applySpecifications(r.db.WithContext(ctx), specs...).Delete(&model.Document{})
	return res.RowsAffected, res.Error
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type SuggestionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewSuggestionRepository(db *gorm.DB) contract.SuggestionRepository {
	return &SuggestionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *SuggestionRepositoryImpl) CreateBatch(ctx context.Context, suggestions []*entity.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	models := make([]*model.Suggestion, len(suggestions))
	for i, s := range suggestions {
		models[i] = r.mapper.SuggestionToModel(s)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*suggestions[i] = *r.mapper.SuggestionToEntity(m)
	}
	return nil
}

func (r *SuggestionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Suggestion, error) {
	var models []*model.Suggestion
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Suggestion, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SuggestionToEntity(m)
	}
	return entities, nil
}

func (r *SuggestionRepositoryImpl) DeleteWhere(ctx context.Context, specs ...specification.Specification) (int64, error) {
	if len(specs) == 0 {
		return 0, errMissingSpecification
	}
	res := applySpecifications(r.db.WithContext(ctx), specs...).Delete(&model.Suggestion{})
	return res.RowsAffected, res.Error
}

func (r *SuggestionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Suggestion{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
