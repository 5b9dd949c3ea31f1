package service

import (
	"context"
	"fmt"

	"github.com/mgiraudo/gastosbot/internal/user/cache"
	"github.com/mgiraudo/gastosbot/internal/user/repository"
	"go.uber.org/zap"
)

type Service struct {
	repo   *repository.Repository
	cache  *cache.Cache
	logger *zap.Logger
}

// NewService wires the user repository with an optional Redis cache; a nil
// cache disables caching.
func NewService(repo *repository.Repository, userCache *cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  userCache,
		logger: logger,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, telegramID int64, name string) (*repository.User, bool, error) {
	user, created, err := s.repo.GetOrCreate(ctx, telegramID, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get or create user: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUserID(ctx, telegramID, user.ID); err != nil {
			s.logger.Warn("failed to cache user id", zap.Error(err))
		}
	}

	return user, created, nil
}

// ResolveID returns the internal user id for a telegram id, trying the cache
// first.
func (s *Service) ResolveID(ctx context.Context, telegramID int64) (int64, error) {
	if s.cache != nil {
		if userID, found, err := s.cache.GetUserID(ctx, telegramID); err == nil && found {
			return userID, nil
		}
	}

	user, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil {
		return 0, fmt.Errorf("user not registered for telegram id %d", telegramID)
	}

	if s.cache != nil {
		if err := s.cache.SetUserID(ctx, telegramID, user.ID); err != nil {
			s.logger.Warn("failed to cache user id", zap.Error(err))
		}
	}

	return user.ID, nil
}
