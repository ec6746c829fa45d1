package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/apierr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	// ResolveUser returns the id of the user owning identity's wallet, creating the user on
	// first sight.
	ResolveUser(ctx context.Context, identity *entity.Identity) (uuid.UUID, error)
	Sync(ctx context.Context, userId uuid.UUID, req *dto.SyncUserRequest) (*dto.UserResponse, error)
}

type userService struct {
	uowFactory  unitofwork.RepositoryFactory
	emailDomain string
	logger      logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, emailDomain string, log logger.ILogger) IUserService {
	return &userService{
		uowFactory:  uowFactory,
		emailDomain: emailDomain,
		logger:      log,
	}
}

func (s *userService) ResolveUser(ctx context.Context, identity *entity.Identity) (uuid.UUID, error) {
	wallet := strings.TrimSpace(identity.WalletAddress)
	if wallet == "" {
		return uuid.Nil, apierr.Auth("token is missing wallet address")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByWalletAddress{WalletAddress: wallet})
	if err != nil {
		return uuid.Nil, apierr.Persistence(err)
	}
	if user != nil {
		return user.Id, nil
	}

	user = &entity.User{
		Id:            uuid.New(),
		Email:         fmt.Sprintf("%s@%s", wallet, s.emailDomain),
		WalletAddress: wallet,
		CreatedAt:     time.Now().UTC(),
	}
	createErr := uow.UserRepository().Create(ctx, user)
	if createErr == nil {
		s.logger.Info("UserService", "Created user for wallet", map[string]interface{}{
			"user_id": user.Id.String(),
			"subject": identity.Subject,
		})
		return user.Id, nil
	}

	// a concurrent request may have inserted the same wallet first
	existing, err := uow.UserRepository().FindOne(ctx, specification.ByWalletAddress{WalletAddress: wallet})
	if err != nil || existing == nil {
		return uuid.Nil, apierr.Persistence(fmt.Errorf("create user: %w", createErr))
	}
	return existing.Id, nil
}

func (s *userService) Sync(ctx context.Context, userId uuid.UUID, req *dto.SyncUserRequest) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, apierr.Persistence(err)
	}
	if user == nil {
		return nil, apierr.NotFound("user %s not found", userId)
	}

	changed := false
	if req.Email != "" && req.Email != user.Email {
		user.Email = req.Email
		changed = true
	}
	if req.WalletPublicKey != nil && (user.WalletPublicKey == nil || *user.WalletPublicKey != *req.WalletPublicKey) {
		user.WalletPublicKey = req.WalletPublicKey
		changed = true
	}
	if changed {
		now := time.Now().UTC()
		user.UpdatedAt = &now
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return nil, apierr.Persistence(err)
		}
	}

	return &dto.UserResponse{
		Id:              user.Id,
		Email:           user.Email,
		WalletAddress:   user.WalletAddress,
		WalletPublicKey: user.WalletPublicKey,
		CreatedAt:       user.CreatedAt,
	}, nil
}
