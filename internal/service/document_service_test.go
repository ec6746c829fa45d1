package service

import (
	"context"
	"testing"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentService(t *testing.T) {
	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(testutil.NewTestDB(t))
	uow := factory.NewUnitOfWork(ctx)
	svc := NewDocumentService(factory)

	owner := uuid.New()
	docId := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, uow.DocumentRepository().Create(ctx, &entity.Document{
			Id:        docId,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UserId:    owner,
			Title:     "Essay",
			Kind:      "text",
			Content:   []string{"v1", "v2", "v3"}[i],
		}))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, uow.SuggestionRepository().CreateBatch(ctx, []*entity.Suggestion{{
			DocumentId:        docId,
			DocumentCreatedAt: base.Add(time.Duration(i) * time.Minute),
			OriginalText:      "a",
			SuggestedText:     "b",
			UserId:            owner,
			CreatedAt:         time.Now().UTC(),
		}}))
	}

	versions, err := svc.GetVersions(ctx, owner, docId)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, "v1", versions[0].Content)
	assert.Equal(t, "v3", versions[2].Content)

	_, err = svc.GetVersions(ctx, uuid.New(), docId)
	assert.ErrorIs(t, err, apierr.ErrUnauthorized)

	_, err = svc.GetSuggestions(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, apierr.ErrNotFound)

	_, err = svc.DeleteVersionsAfter(ctx, uuid.New(), docId, base)
	assert.ErrorIs(t, err, apierr.ErrUnauthorized)

	res, err := svc.DeleteVersionsAfter(ctx, owner, docId, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.DeletedVersions)
	assert.Equal(t, int64(2), res.DeletedSuggestions)

	versions, err = svc.GetVersions(ctx, owner, docId)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1", versions[0].Content)

	suggestions, err := svc.GetSuggestions(ctx, owner, docId)
	require.NoError(t, err)
	assert.Len(t, suggestions, 1)
}
