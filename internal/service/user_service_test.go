package service

import (
	"context"
	"sync"
	"testing"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUser(t *testing.T) {
	factory := unitofwork.NewRepositoryFactory(testutil.NewTestDB(t))
	svc := NewUserService(factory, "privy.io", logger.NewNopLogger())
	identity := &entity.Identity{Subject: "did:privy:abc", WalletAddress: "0xAbC"}

	first, err := svc.ResolveUser(context.Background(), identity)
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = svc.ResolveUser(context.Background(), identity)
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, first, id)
	}

	user, err := factory.NewUnitOfWork(context.Background()).UserRepository().FindOne(context.Background(), specification.ByID{ID: first})
	require.NoError(t, err)
	assert.Equal(t, "0xAbC@privy.io", user.Email)

	_, err = svc.ResolveUser(context.Background(), &entity.Identity{Subject: "x"})
	assert.ErrorIs(t, err, apierr.ErrAuth)
}

func TestSyncUser(t *testing.T) {
	factory := unitofwork.NewRepositoryFactory(testutil.NewTestDB(t))
	svc := NewUserService(factory, "privy.io", logger.NewNopLogger())

	userId, err := svc.ResolveUser(context.Background(), &entity.Identity{Subject: "s", WalletAddress: "0x1"})
	require.NoError(t, err)

	key := "pubkey"
	res, err := svc.Sync(context.Background(), userId, &dto.SyncUserRequest{Email: "me@example.com", WalletPublicKey: &key})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", res.Email)
	require.NotNil(t, res.WalletPublicKey)
	assert.Equal(t, "pubkey", *res.WalletPublicKey)

	res, err = svc.Sync(context.Background(), userId, &dto.SyncUserRequest{})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", res.Email)

	_, err = svc.Sync(context.Background(), uuid.New(), &dto.SyncUserRequest{})
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}
