package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// SubscriptionService follows and unfollows authors.
type SubscriptionService struct {
	follows *PairRelation
	users   *UserService
}

func NewSubscriptionService(db *gorm.DB, users *UserService) *SubscriptionService {
	return &SubscriptionService{follows: NewFollows(db), users: users}
}

// Subscribe makes userID follow authorID and returns the author with recipes.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.UserWithRecipes, error) {
	if userID == authorID {
		return nil, ErrSelfFollow
	}
	if _, err := s.users.load(ctx, authorID); err != nil {
		return nil, err
	}
	if err := s.follows.Add(ctx, userID, authorID); err != nil {
		return nil, err
	}
	logger.Info("subscribed", zap.Uint("user_id", userID), zap.Uint("author_id", authorID))
	return s.users.AuthorWithRecipes(ctx, userID, authorID, recipesLimit)
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return ErrSelfFollow
	}
	if _, err := s.users.load(ctx, authorID); err != nil {
		return err
	}
	return s.follows.Remove(ctx, userID, authorID)
}
